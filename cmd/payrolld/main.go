package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianhr/payroll-engine/internal/config"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/meridianhr/payroll-engine/internal/repository/postgres"
	"github.com/meridianhr/payroll-engine/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(pool)
	installmentRepo := postgres.NewInstallmentRepository(pool)
	advanceRepo := postgres.NewAdvanceRepository(pool)
	directory := postgres.NewEmployeeDirectory(pool)

	// Initialize services
	loanService := service.NewLoanService(loanRepo, installmentRepo, directory, cfg.DefaultInsuranceRate, log.Logger)
	paymentService := service.NewPaymentService(installmentRepo, loanRepo, log.Logger)
	advanceService := service.NewAdvanceService(advanceRepo, directory, log.Logger)

	switch os.Args[1] {
	case "migrate":
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		log.Info().Msg("Schema is up to date")

	case "report":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		employeeID, err := uuid.Parse(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid employee id")
		}
		if err := report(ctx, loanService, advanceService, employeeID); err != nil {
			log.Fatal().Err(err).Msg("Failed to build report")
		}

	case "pay":
		if len(os.Args) != 4 {
			usage()
			os.Exit(2)
		}
		installmentID, err := uuid.Parse(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid installment id")
		}
		amount, err := decimal.NewFromString(os.Args[3])
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid amount")
		}
		result, err := paymentService.PayInstallment(ctx, service.PayInstallmentInput{
			InstallmentID: installmentID,
			Amount:        amount,
			Actor:         "payrolld",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Payment failed")
		}
		printJSON(result)

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: payrolld <command>

Commands:
  migrate                       apply pending schema migrations
  report <employee-id>          print loan and advance progress for an employee
  pay <installment-id> <amount> record a payment against an installment`)
}

type loanReport struct {
	Loan         *domain.Loan          `json:"loan"`
	Progress     service.Progress      `json:"progress"`
	Current      *domain.Installment   `json:"currentInstallment,omitempty"`
	Installments []*domain.Installment `json:"installments"`
}

type advanceReport struct {
	Advance  *domain.Advance  `json:"advance"`
	Progress service.Progress `json:"progress"`
}

func report(ctx context.Context, loans *service.LoanService, advances *service.AdvanceService, employeeID uuid.UUID) error {
	now := time.Now()

	employeeLoans, err := loans.GetLoansByEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	loanReports := make([]loanReport, 0, len(employeeLoans))
	for _, loan := range employeeLoans {
		installments, err := loans.GetInstallments(ctx, loan.ID)
		if err != nil {
			return err
		}
		loanReports = append(loanReports, loanReport{
			Loan:         loan,
			Progress:     service.LoanProgress(loan, installments, now),
			Current:      service.CurrentInstallment(installments, now),
			Installments: installments,
		})
	}

	employeeAdvances, err := advances.GetAdvancesByEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	advanceReports := make([]advanceReport, 0, len(employeeAdvances))
	for _, advance := range employeeAdvances {
		advanceReports = append(advanceReports, advanceReport{
			Advance:  advance,
			Progress: service.AdvanceProgress(advance, now),
		})
	}

	printJSON(map[string]any{
		"employeeId": employeeID,
		"loans":      loanReports,
		"advances":   advanceReports,
	})
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode output")
	}
}
