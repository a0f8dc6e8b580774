package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
)

func newClaimFixture(t *testing.T) (ClaimService, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	service := NewClaimService(repo, cache.NewCacheManager(nil), events.NewMockEventPublisher(testLogger()), testLogger())
	return service, repo
}

func seedClaimable(t *testing.T, repo *fakeRepository, refNo, email string) *models.Certificate {
	t.Helper()
	ctx := context.Background()

	submission := &models.Submission{
		CertificateType: models.TypeStudent,
		FullName:        "Asha Rao",
		Email:           email,
		CourseName:      "Python Programming",
		BatchInitials:   "G28",
		Status:          models.SubmissionGenerated,
	}
	if err := repo.Submissions().Create(ctx, submission); err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	cert := &models.Certificate{
		RefNo:           refNo,
		VerificationURL: "https://certificates.suretrust.org/verify/" + refNo,
		CertificateType: models.TypeStudent,
		HolderName:      "Asha Rao",
		Course:          "Python Programming",
		Batch:           "G28",
		IssueDate:       time.Now(),
		IsActive:        true,
		SubmissionID:    submission.ID,
	}
	if err := repo.Certificates().Create(ctx, cert); err != nil {
		t.Fatalf("seed certificate: %v", err)
	}
	return cert
}

func seedUser(t *testing.T, repo *fakeRepository, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		FirstName:    "Asha",
		LastName:     "Rao",
		Role:         models.RoleUser,
		AuthProvider: models.ProviderLocal,
		IsActive:     true,
	}
	if err := repo.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestClaimMatchingEmail(t *testing.T) {
	service, repo := newClaimFixture(t)
	ctx := context.Background()

	cert := seedClaimable(t, repo, "STUDENT_PYTH_G28_2024_0001", "asha.rao@example.com")
	user := seedUser(t, repo, "asha.rao@example.com")

	status, err := service.Status(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Claimable || status.Claimed {
		t.Errorf("status = %+v, want claimable and unclaimed", status)
	}

	claimed, err := service.Claim(ctx, cert.RefNo, user.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.UserID == nil || *claimed.UserID != user.ID {
		t.Errorf("UserID = %v, want %d", claimed.UserID, user.ID)
	}

	// Claiming again is idempotent for the owner.
	if _, err := service.Claim(ctx, cert.RefNo, user.ID); err != nil {
		t.Errorf("repeat Claim by owner: %v", err)
	}
}

func TestClaimEmailMismatch(t *testing.T) {
	service, repo := newClaimFixture(t)
	ctx := context.Background()

	cert := seedClaimable(t, repo, "STUDENT_PYTH_G28_2024_0002", "holder@example.com")
	intruder := seedUser(t, repo, "intruder@example.com")

	if _, err := service.Claim(ctx, cert.RefNo, intruder.ID); !errors.Is(err, ErrClaimEmailMismatch) {
		t.Errorf("err = %v, want ErrClaimEmailMismatch", err)
	}
}

func TestClaimAlreadyOwned(t *testing.T) {
	service, repo := newClaimFixture(t)
	ctx := context.Background()

	// Two accounts share the submission email, first claim wins.
	cert := seedClaimable(t, repo, "STUDENT_PYTH_G28_2024_0003", "shared@example.com")
	first := seedUser(t, repo, "shared@example.com")

	second := &models.User{
		Email:        "Shared@Example.com",
		FirstName:    "Other",
		Role:         models.RoleUser,
		AuthProvider: models.ProviderLocal,
		IsActive:     true,
	}
	if err := repo.Users().Create(ctx, second); err != nil {
		t.Fatalf("seed second user: %v", err)
	}

	if _, err := service.Claim(ctx, cert.RefNo, first.ID); err != nil {
		t.Fatalf("first Claim: %v", err)
	}
	if _, err := service.Claim(ctx, cert.RefNo, second.ID); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("second Claim err = %v, want ErrAlreadyClaimed", err)
	}
}

func TestClaimRevokedCertificate(t *testing.T) {
	service, repo := newClaimFixture(t)
	ctx := context.Background()

	cert := seedClaimable(t, repo, "STUDENT_PYTH_G28_2024_0004", "asha.rao@example.com")
	user := seedUser(t, repo, "asha.rao@example.com")

	if err := repo.Certificates().SetActive(ctx, cert.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	status, err := service.Status(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Claimable {
		t.Error("revoked certificate reported as claimable")
	}

	if _, err := service.Claim(ctx, cert.RefNo, user.ID); !errors.Is(err, ErrCertificateRevoked) {
		t.Errorf("Claim err = %v, want ErrCertificateRevoked", err)
	}

	stored, err := repo.Certificates().GetByRefNo(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("GetByRefNo: %v", err)
	}
	if stored.UserID != nil {
		t.Errorf("revoked certificate gained owner %d", *stored.UserID)
	}
}

func TestClaimUnknownCode(t *testing.T) {
	service, repo := newClaimFixture(t)
	user := seedUser(t, repo, "someone@example.com")

	if _, err := service.Claim(context.Background(), "STUDENT_NOPE_G01_2024_0000", user.ID); !errors.Is(err, ErrCertificateNotFound) {
		t.Errorf("err = %v, want ErrCertificateNotFound", err)
	}
	if _, err := service.Status(context.Background(), "STUDENT_NOPE_G01_2024_0000"); !errors.Is(err, ErrCertificateNotFound) {
		t.Errorf("Status err = %v, want ErrCertificateNotFound", err)
	}
}
