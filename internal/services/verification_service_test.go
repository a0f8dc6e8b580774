package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

func seedCertificate(t *testing.T, repo *fakeRepository, refNo string) *models.Certificate {
	t.Helper()
	cert := &models.Certificate{
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
	if err := repo.Certificates().Create(context.Background(), cert); err != nil {
		t.Fatalf("seed certificate: %v", err)
	}
	return cert
}

func TestVerifyKnownCode(t *testing.T) {
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	service := NewVerificationService(repo, publisher, testLogger())
	ctx := context.Background()

	cert := seedCertificate(t, repo, "STUDENT_PYTH_G28_2024_1234")

	resp, err := service.Verify(ctx, cert.RefNo, ClientMeta{IPAddress: "203.0.113.9", UserAgent: "curl/8.0"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !resp.Verified {
		t.Fatal("Verified = false, want true")
	}
	if resp.HolderName != "Asha Rao" || resp.Course != "Python Programming" {
		t.Errorf("snapshot mismatch: %+v", resp)
	}
	if resp.VerificationCount != 1 {
		t.Errorf("VerificationCount = %d, want 1", resp.VerificationCount)
	}
	if resp.LastVerifiedAt == nil {
		t.Error("LastVerifiedAt not stamped")
	}

	// One success log entry with the client metadata.
	logs, _, err := repo.VerificationLogs().List(ctx, repositories.VerificationLogFilters{})
	if err != nil {
		t.Fatalf("List logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != models.VerificationSuccess {
		t.Fatalf("logs = %+v, want one success entry", logs)
	}
	if logs[0].IPAddress == nil || *logs[0].IPAddress != "203.0.113.9" {
		t.Errorf("log ip = %v", logs[0].IPAddress)
	}

	// One verified event.
	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventCertificateVerified {
		t.Fatalf("published = %+v, want one certificate.verified", published)
	}
}

func TestVerifyUnknownCode(t *testing.T) {
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	service := NewVerificationService(repo, publisher, testLogger())
	ctx := context.Background()

	resp, err := service.Verify(ctx, "STUDENT_NOPE_G01_2024_0000", ClientMeta{})
	if err != nil {
		t.Fatalf("Verify of unknown code must not error, got %v", err)
	}
	if resp.Verified {
		t.Error("Verified = true for unknown code")
	}
	if resp.HolderName != "" {
		t.Error("unknown code must not leak holder details")
	}

	// The failed attempt is still logged.
	logs, _, err := repo.VerificationLogs().List(ctx, repositories.VerificationLogFilters{})
	if err != nil {
		t.Fatalf("List logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != models.VerificationNotFound {
		t.Fatalf("logs = %+v, want one not_found entry", logs)
	}

	if len(publisher.GetPublishedEvents()) != 0 {
		t.Error("no event should be published for unknown codes")
	}
}

func TestVerifyRevokedCode(t *testing.T) {
	repo := newFakeRepository()
	service := NewVerificationService(repo, events.NewMockEventPublisher(testLogger()), testLogger())
	ctx := context.Background()

	cert := seedCertificate(t, repo, "STUDENT_PYTH_G28_2024_4321")
	if err := repo.Certificates().SetActive(ctx, cert.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	resp, err := service.Verify(ctx, cert.RefNo, ClientMeta{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if resp.Verified {
		t.Error("revoked certificate must not verify")
	}
}

func TestVerifyConcurrentCounting(t *testing.T) {
	repo := newFakeRepository()
	service := NewVerificationService(repo, events.NewMockEventPublisher(testLogger()), testLogger())
	ctx := context.Background()

	cert := seedCertificate(t, repo, "STUDENT_PYTH_G28_2024_5678")

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := service.Verify(ctx, cert.RefNo, ClientMeta{})
			if err != nil {
				t.Errorf("Verify: %v", err)
				return
			}
			if !resp.Verified {
				t.Error("Verified = false under concurrency")
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

	count, err := repo.VerificationLogs().CountByRefNo(ctx, cert.RefNo)
	if err != nil {
		t.Fatalf("CountByRefNo: %v", err)
	}
	if count != n {
		t.Errorf("log count = %d, want %d", count, n)
	}
}

func TestVerifyEmptyCode(t *testing.T) {
	repo := newFakeRepository()
	service := NewVerificationService(repo, events.NewMockEventPublisher(testLogger()), testLogger())

	if _, err := service.Verify(context.Background(), "   ", ClientMeta{}); err == nil {
		t.Error("blank code should be rejected")
	}
}
