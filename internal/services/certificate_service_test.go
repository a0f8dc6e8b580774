package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/cache"
	"github.com/SURE-Trust/certificate-service/internal/certgen"
	"github.com/SURE-Trust/certificate-service/internal/events"
	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
	"github.com/SURE-Trust/certificate-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type certFixture struct {
	repo      *fakeRepository
	publisher *events.MockEventPublisher
	service   CertificateService
	outputDir string
}

func newCertFixture(t *testing.T) *certFixture {
	t.Helper()
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	outputDir := t.TempDir()

	artifacts, err := certgen.NewArtifactStore(outputDir)
	if err != nil {
		t.Fatalf("NewArtifactStore: %v", err)
	}

	service := NewCertificateService(
		repo,
		cache.NewCacheManager(nil),
		publisher,
		certgen.NewComposer(t.TempDir()),
		artifacts,
		validator.New(),
		testLogger(),
		"https://certificates.suretrust.org/verify/",
		t.TempDir(),
	)
	return &certFixture{repo: repo, publisher: publisher, service: service, outputDir: outputDir}
}

func studentFormPayload() map[string]any {
	return map[string]any{
		"Choose Your Role": "student",
		"FULL NAME":        "Asha Rao",
		"Email Address":    "asha.rao@example.com",
		"Course/Domain":    "Python Programming",
		"Batch":            "G28",
		"Start Date":       "2024-01-15",
		"End Date":         "2024-05-15",
		"GPA":              "9.1",
	}
}

func TestGenerateStudentCertificate(t *testing.T) {
	fx := newCertFixture(t)
	ctx := context.Background()

	resp, err := fx.service.Generate(ctx, studentFormPayload())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	refNoPattern := regexp.MustCompile(`^STUDENT_PYTH_G28_\d{4}_\d{4}$`)
	if !refNoPattern.MatchString(resp.RefNo) {
		t.Errorf("RefNo = %q, want match for %s", resp.RefNo, refNoPattern)
	}
	if resp.HolderName != "Asha Rao" {
		t.Errorf("HolderName = %q", resp.HolderName)
	}
	if !resp.IsActive {
		t.Error("new certificate should be active")
	}
	if resp.GPA == nil || *resp.GPA != 9.1 {
		t.Errorf("GPA = %v, want 9.1", resp.GPA)
	}
	if resp.UserID != nil {
		t.Error("new certificate should be unclaimed")
	}

	// Both artifacts land on disk.
	for _, rel := range []string{resp.PDFPath, resp.ImagePath} {
		if _, err := os.Stat(filepath.Join(fx.outputDir, rel)); err != nil {
			t.Errorf("artifact %s missing: %v", rel, err)
		}
	}

	// Submission transitioned to generated.
	sub, err := fx.repo.Submissions().GetByID(ctx, resp.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID submission: %v", err)
	}
	if sub.Status != models.SubmissionGenerated {
		t.Errorf("submission status = %q, want generated", sub.Status)
	}
	if sub.Email != "asha.rao@example.com" {
		t.Errorf("submission email = %q", sub.Email)
	}

	// Exactly one issuance event.
	published := fx.publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventCertificateIssued {
		t.Fatalf("published events = %+v, want one certificate.issued", published)
	}
}

func TestGenerateMissingRequiredField(t *testing.T) {
	fx := newCertFixture(t)

	payload := studentFormPayload()
	delete(payload, "GPA")

	_, err := fx.service.Generate(context.Background(), payload)
	if err == nil {
		t.Fatal("expected validation error")
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	found := false
	for _, fe := range verrs {
		if fe.Field == "gpa" {
			found = true
		}
	}
	if !found {
		t.Errorf("validation errors %v do not mention gpa", verrs)
	}

	// Nothing persisted on validation failure.
	if len(fx.publisher.GetPublishedEvents()) != 0 {
		t.Error("no events should be published for rejected payloads")
	}
}

func TestGenerateTrainerRequiresTrainingHours(t *testing.T) {
	fx := newCertFixture(t)

	payload := map[string]any{
		"Choose Your Role": "trainer",
		"FULL NAME":        "Ravi Kumar",
		"Email Address":    "ravi@example.com",
		"Course/Domain":    "VLSI",
		"Batch":            "G12",
		"Start Date":       "2024-02-01",
		"End Date":         "2024-06-01",
	}

	_, err := fx.service.Generate(context.Background(), payload)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	found := false
	for _, fe := range verrs {
		if fe.Field == "training_hours" {
			found = true
		}
	}
	if !found {
		t.Errorf("validation errors %v do not mention training_hours", verrs)
	}
}

func TestDeactivateKeepsRecordRetrievable(t *testing.T) {
	fx := newCertFixture(t)
	ctx := context.Background()

	resp, err := fx.service.Generate(ctx, studentFormPayload())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := fx.service.Deactivate(ctx, resp.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	got, err := fx.service.GetByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetByID after deactivate: %v", err)
	}
	if got.IsActive {
		t.Error("certificate should be inactive")
	}

	// Deactivating twice is a no-op.
	if err := fx.service.Deactivate(ctx, resp.ID); err != nil {
		t.Errorf("second Deactivate: %v", err)
	}

	if err := fx.service.Reactivate(ctx, resp.ID); err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	got, err = fx.service.GetByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("GetByID after reactivate: %v", err)
	}
	if !got.IsActive {
		t.Error("certificate should be active again")
	}
}

func TestGenerateUnknownFieldsLandInExtras(t *testing.T) {
	fx := newCertFixture(t)
	ctx := context.Background()

	payload := studentFormPayload()
	payload["LinkedIn Profile"] = "https://linkedin.com/in/asharao"

	resp, err := fx.service.Generate(ctx, payload)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	sub, err := fx.repo.Submissions().GetByID(ctx, resp.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID submission: %v", err)
	}
	if got := sub.ExtraFields["linkedin_profile"]; got != "https://linkedin.com/in/asharao" {
		t.Errorf("extra field = %v, want the linkedin url under its normalized key", got)
	}
}

func TestArtifactPath(t *testing.T) {
	fx := newCertFixture(t)
	ctx := context.Background()

	resp, err := fx.service.Generate(ctx, studentFormPayload())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	abs, err := fx.service.ArtifactPath(ctx, resp.ID, "pdf")
	if err != nil {
		t.Fatalf("ArtifactPath: %v", err)
	}
	if _, err := os.Stat(abs); err != nil {
		t.Errorf("resolved artifact missing: %v", err)
	}

	if _, err := fx.service.ArtifactPath(ctx, resp.ID, "docx"); err == nil {
		t.Error("unknown artifact kind should be rejected")
	}
	if _, err := fx.service.ArtifactPath(ctx, 9999, "pdf"); err != ErrCertificateNotFound {
		t.Errorf("missing certificate err = %v, want ErrCertificateNotFound", err)
	}
}

// blindPrecheckRepo hides existing reference codes from ExistsByRefNo so a
// collision only surfaces through the unique index at insert time, the way
// two concurrent generations racing past the pre-check would.
type blindPrecheckRepo struct {
	*fakeRepository
}

func (r *blindPrecheckRepo) Certificates() repositories.CertificateRepository {
	return blindPrecheckCerts{r.fakeRepository.Certificates()}
}

type blindPrecheckCerts struct {
	repositories.CertificateRepository
}

func (blindPrecheckCerts) ExistsByRefNo(context.Context, string) (bool, error) { return false, nil }

func TestGenerateRetriesInsertCollision(t *testing.T) {
	fx := newCertFixture(t)
	ctx := context.Background()

	svc := fx.service.(*certificateService)
	issued := time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	svc.repo = &blindPrecheckRepo{fx.repo}

	// Another generation already took the code the first attempt derives.
	taken := certgen.NewRefNo("STUDENT", "Python Programming", "G28", issued)
	seed := &models.Certificate{
		RefNo:           taken,
		VerificationURL: "https://certificates.suretrust.org/verify/" + taken,
		CertificateType: models.TypeStudent,
		HolderName:      "Ravi Kumar",
		Course:          "Python Programming",
		Batch:           "G28",
		IssueDate:       issued,
		IsActive:        true,
		SubmissionID:    99,
	}
	if err := fx.repo.Certificates().Create(ctx, seed); err != nil {
		t.Fatalf("seed certificate: %v", err)
	}

	resp, err := fx.service.Generate(ctx, studentFormPayload())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := certgen.NewRefNo("STUDENT", "Python Programming", "G28", issued.Add(time.Millisecond))
	if resp.RefNo != want {
		t.Errorf("RefNo = %q, want the nudged code %q", resp.RefNo, want)
	}

	sub, err := fx.repo.Submissions().GetByID(ctx, resp.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID submission: %v", err)
	}
	if sub.Status != models.SubmissionGenerated {
		t.Errorf("submission status = %q, want generated", sub.Status)
	}
}

func TestGenerateSuffixSpaceExhausted(t *testing.T) {
	fx := newCertFixture(t)
	ctx := context.Background()

	svc := fx.service.(*certificateService)
	issued := time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	svc.repo = &blindPrecheckRepo{fx.repo}

	for i := 0; i < refNoAttempts; i++ {
		refNo := certgen.NewRefNo("STUDENT", "Python Programming", "G28", issued.Add(time.Duration(i)*time.Millisecond))
		seed := &models.Certificate{
			RefNo:           refNo,
			VerificationURL: "https://certificates.suretrust.org/verify/" + refNo,
			CertificateType: models.TypeStudent,
			HolderName:      "Ravi Kumar",
			Course:          "Python Programming",
			Batch:           "G28",
			IssueDate:       issued,
			IsActive:        true,
			SubmissionID:    uint(100 + i),
		}
		if err := fx.repo.Certificates().Create(ctx, seed); err != nil {
			t.Fatalf("seed certificate %d: %v", i, err)
		}
	}

	if _, err := fx.service.Generate(ctx, studentFormPayload()); !errors.Is(err, ErrRefNoCollision) {
		t.Fatalf("Generate err = %v, want ErrRefNoCollision", err)
	}

	var failed int
	for _, sub := range fx.repo.submissions {
		if sub.Status == models.SubmissionFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed submissions = %d, want 1", failed)
	}
}
