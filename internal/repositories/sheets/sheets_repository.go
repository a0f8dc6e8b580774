package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// Sheet names inside the workbook.
const (
	sheetSubmissions      = "Submissions"
	sheetCertificates     = "Certificates"
	sheetVerificationLogs = "VerificationLogs"
)

// SheetsRepository implements the Repository interface with the certificate
// domain in an xlsx workbook. Intended for small deployments and offline
// audits; all operations serialize on one mutex, which also makes the
// verification counter increment atomic. Account stores stay on the SQL
// repository passed in at construction.
type SheetsRepository struct {
	mu       sync.Mutex
	path     string
	file     *excelize.File
	accounts repositories.Repository

	state *workbookState

	submissions      repositories.SubmissionRepository
	certificates     repositories.CertificateRepository
	verificationLogs repositories.VerificationLogRepository
}

// NewSheetsRepository opens (or creates) the workbook at path and loads all
// rows into memory. Writes rewrite the affected sheet and save the file.
func NewSheetsRepository(path string, accounts repositories.Repository) (repositories.Repository, error) {
	repo := &SheetsRepository{
		path:     path,
		accounts: accounts,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		repo.file = excelize.NewFile()
		for _, name := range []string{sheetSubmissions, sheetCertificates, sheetVerificationLogs} {
			if _, err := repo.file.NewSheet(name); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", name, err)
			}
		}
		repo.file.DeleteSheet("Sheet1")
		repo.state = newWorkbookState()
		repo.writeHeaders()
		if err := repo.file.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook: %w", err)
		}
	} else {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		repo.file = f
		state, err := loadWorkbookState(f)
		if err != nil {
			return nil, fmt.Errorf("load workbook: %w", err)
		}
		repo.state = state
	}

	repo.submissions = &submissionSheets{repo: repo}
	repo.certificates = &certificateSheets{repo: repo}
	repo.verificationLogs = &verificationLogSheets{repo: repo}

	return repo, nil
}

func (r *SheetsRepository) Users() repositories.UserRepository {
	return r.accounts.Users()
}

func (r *SheetsRepository) Sessions() repositories.SessionRepository {
	return r.accounts.Sessions()
}

func (r *SheetsRepository) EmailTokens() repositories.EmailTokenRepository {
	return r.accounts.EmailTokens()
}

func (r *SheetsRepository) Submissions() repositories.SubmissionRepository {
	return r.submissions
}

func (r *SheetsRepository) Certificates() repositories.CertificateRepository {
	return r.certificates
}

func (r *SheetsRepository) VerificationLogs() repositories.VerificationLogRepository {
	return r.verificationLogs
}

// WithTransaction spans only the SQL-backed account stores; workbook writes
// are individually serialized by the repository mutex instead.
func (r *SheetsRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.accounts.WithTransaction(ctx, func(txAccounts repositories.Repository) error {
		txRepo := &SheetsRepository{
			path:             r.path,
			file:             r.file,
			accounts:         txAccounts,
			state:            r.state,
			submissions:      r.submissions,
			certificates:     r.certificates,
			verificationLogs: r.verificationLogs,
		}
		return fn(txRepo)
	})
}

func (r *SheetsRepository) Ping(ctx context.Context) error {
	r.mu.Lock()
	_, err := os.Stat(r.path)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("workbook unavailable: %w", err)
	}
	return r.accounts.Ping(ctx)
}

func (r *SheetsRepository) Close() error {
	r.mu.Lock()
	err := r.file.Close()
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	return r.accounts.Close()
}

// save flushes the workbook to disk. Callers must hold r.mu.
func (r *SheetsRepository) save() error {
	if err := r.file.SaveAs(r.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
