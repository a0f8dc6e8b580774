package sheets

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

func newTestRepo(t *testing.T) (repositories.Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certificates.xlsx")
	repo, err := NewSheetsRepository(path, nil)
	if err != nil {
		t.Fatalf("NewSheetsRepository: %v", err)
	}
	return repo, path
}

func testCertificate(refNo string) *models.Certificate {
	return &models.Certificate{
		RefNo:           refNo,
		VerificationURL: "https://certificates.suretrust.org/verify/" + refNo,
		CertificateType: models.TypeStudent,
		HolderName:      "Asha Rao",
		Course:          "Python Programming",
		Batch:           "G28",
		IssueDate:       time.Now(),
		IsActive:        true,
		SubmissionID:    1,
	}
}

func TestSheetsCertificateRoundTrip(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	cert := testCertificate("STUDENT_PYTH_G28_2024_0001")
	if err := repo.Certificates().Create(ctx, cert); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if cert.ID == 0 {
		t.Fatal("Create did not assign an id")
	}

	got, err := repo.Certificates().GetByRefNo(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("GetByRefNo: %v", err)
	}
	if got.HolderName != "Asha Rao" {
		t.Errorf("HolderName = %q", got.HolderName)
	}

	// Duplicate reference codes are rejected.
	if err := repo.Certificates().Create(ctx, testCertificate(cert.RefNo)); !repositories.IsDuplicate(err) {
		t.Errorf("duplicate Create err = %v, want ErrDuplicate", err)
	}

	// State survives reopening the workbook.
	reopened, err := NewSheetsRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err = reopened.Certificates().GetByRefNo(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("GetByRefNo after reopen: %v", err)
	}
	if got.ID != cert.ID || got.Course != "Python Programming" {
		t.Errorf("reopened record mismatch: %+v", got)
	}
}

func TestSheetsIncrementVerificationConcurrent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cert := testCertificate("STUDENT_PYTH_G28_2024_0002")
	if err := repo.Certificates().Create(ctx, cert); err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Certificates().IncrementVerification(ctx, cert.RefNo, time.Now()); err != nil {
				t.Errorf("IncrementVerification: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Certificates().GetByRefNo(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("GetByRefNo: %v", err)
	}
	if got.VerificationCount != n {
		t.Errorf("VerificationCount = %d, want %d", got.VerificationCount, n)
	}
}

func TestSheetsIncrementVerificationInactive(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cert := testCertificate("STUDENT_PYTH_G28_2024_0003")
	if err := repo.Certificates().Create(ctx, cert); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Certificates().SetActive(ctx, cert.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	if _, err := repo.Certificates().IncrementVerification(ctx, cert.RefNo, time.Now()); !repositories.IsNotFound(err) {
		t.Errorf("inactive increment err = %v, want ErrNotFound", err)
	}

	// Record itself stays retrievable.
	if _, err := repo.Certificates().GetByID(ctx, cert.ID); err != nil {
		t.Errorf("GetByID after deactivate: %v", err)
	}
}

func TestSheetsClaimForUser(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	cert := testCertificate("STUDENT_PYTH_G28_2024_0004")
	if err := repo.Certificates().Create(ctx, cert); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Certificates().ClaimForUser(ctx, cert.RefNo, 7); err != nil {
		t.Fatalf("ClaimForUser: %v", err)
	}
	// Idempotent for the same user.
	if err := repo.Certificates().ClaimForUser(ctx, cert.RefNo, 7); err != nil {
		t.Errorf("repeat claim by owner: %v", err)
	}
	// Rejected for another user.
	if err := repo.Certificates().ClaimForUser(ctx, cert.RefNo, 8); !repositories.IsDuplicate(err) {
		t.Errorf("claim by second user err = %v, want ErrDuplicate", err)
	}
}
