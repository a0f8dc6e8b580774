package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/SURE-Trust/certificate-service/internal/models"
	"github.com/SURE-Trust/certificate-service/internal/repositories"
)

// fakeRepository is a mutex-guarded in-memory Repository for service tests.
type fakeRepository struct {
	mu          sync.Mutex
	users       map[uint]*models.User
	sessions    map[string]*models.Session
	tokens      map[uint]*models.EmailToken
	submissions map[uint]*models.Submission
	certs       map[uint]*models.Certificate
	certsByRef  map[string]uint
	logs        []*models.VerificationLog
	nextID      uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:       map[uint]*models.User{},
		sessions:    map[string]*models.Session{},
		tokens:      map[uint]*models.EmailToken{},
		submissions: map[uint]*models.Submission{},
		certs:       map[uint]*models.Certificate{},
		certsByRef:  map[string]uint{},
	}
}

func (r *fakeRepository) id() uint {
	r.nextID++
	return r.nextID
}

func (r *fakeRepository) Users() repositories.UserRepository               { return fakeUsers{r} }
func (r *fakeRepository) Sessions() repositories.SessionRepository         { return fakeSessions{r} }
func (r *fakeRepository) EmailTokens() repositories.EmailTokenRepository   { return fakeTokens{r} }
func (r *fakeRepository) Submissions() repositories.SubmissionRepository   { return fakeSubmissions{r} }
func (r *fakeRepository) Certificates() repositories.CertificateRepository { return fakeCerts{r} }
func (r *fakeRepository) VerificationLogs() repositories.VerificationLogRepository {
	return fakeLogs{r}
}

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}
func (r *fakeRepository) Ping(context.Context) error { return nil }
func (r *fakeRepository) Close() error               { return nil }

// ===== USERS =====

type fakeUsers struct{ r *fakeRepository }

func (f fakeUsers) Create(_ context.Context, user *models.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, u := range f.r.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = f.r.id()
	user.CreatedAt = time.Now()
	f.r.users[user.ID] = user
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if u, ok := f.r.users[id]; ok {
		return u, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, u := range f.r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, u := range f.r.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeUsers) Update(_ context.Context, user *models.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.r.users[user.ID] = user
	return nil
}

func (f fakeUsers) UpdateFields(_ context.Context, id uint, fields map[string]interface{}) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	u, ok := f.r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "password_hash":
			s := v.(string)
			u.PasswordHash = &s
		case "google_id":
			s := v.(string)
			u.GoogleID = &s
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "bio":
			s := v.(string)
			u.Bio = &s
		case "avatar_url":
			s := v.(string)
			u.AvatarURL = &s
		case "role":
			u.Role = models.UserRole(v.(string))
		case "is_active":
			u.IsActive = v.(bool)
		case "is_verified":
			u.IsVerified = v.(bool)
		case "verified_at":
			t := v.(time.Time)
			u.VerifiedAt = &t
		case "last_login_at":
			t := v.(time.Time)
			u.LastLoginAt = &t
		}
	}
	return nil
}

func (f fakeUsers) List(_ context.Context, _ repositories.UserFilters) ([]*models.User, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.User
	for _, u := range f.r.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if repositories.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (f fakeUsers) Anonymize(_ context.Context, id uint, placeholderEmail string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	u, ok := f.r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.Email = placeholderEmail
	u.FirstName = "Deleted"
	u.LastName = "User"
	u.PasswordHash = nil
	u.GoogleID = nil
	u.IsActive = false
	return nil
}

func (f fakeUsers) Stats(context.Context) (*repositories.UserStats, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	stats := &repositories.UserStats{TotalUsers: int64(len(f.r.users))}
	for _, u := range f.r.users {
		if u.IsVerified {
			stats.VerifiedUsers++
		}
		if u.IsActive {
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

// ===== SESSIONS =====

type fakeSessions struct{ r *fakeRepository }

func (f fakeSessions) Create(_ context.Context, session *models.Session) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	session.ID = f.r.id()
	f.r.sessions[session.RefreshToken] = session
	return nil
}

func (f fakeSessions) GetByRefreshToken(_ context.Context, token string) (*models.Session, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if s, ok := f.r.sessions[token]; ok {
		return s, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeSessions) DeleteByRefreshToken(_ context.Context, token string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.sessions[token]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.sessions, token)
	return nil
}

func (f fakeSessions) DeleteByUser(_ context.Context, userID uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for token, s := range f.r.sessions {
		if s.UserID == userID {
			delete(f.r.sessions, token)
		}
	}
	return nil
}

func (f fakeSessions) DeleteExpired(context.Context) (int64, error) { return 0, nil }

// ===== EMAIL TOKENS =====

type fakeTokens struct{ r *fakeRepository }

func (f fakeTokens) Create(_ context.Context, token *models.EmailToken) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	token.ID = f.r.id()
	f.r.tokens[token.ID] = token
	return nil
}

func (f fakeTokens) GetValid(_ context.Context, token string, purpose models.TokenPurpose) (*models.EmailToken, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, t := range f.r.tokens {
		if t.Token == token && t.Purpose == purpose && t.ConsumedAt == nil && time.Now().Before(t.ExpiresAt) {
			return t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeTokens) Consume(_ context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	t, ok := f.r.tokens[id]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	t.ConsumedAt = &now
	return nil
}

func (f fakeTokens) DeleteByUser(_ context.Context, userID uint, purpose models.TokenPurpose) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for id, t := range f.r.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			delete(f.r.tokens, id)
		}
	}
	return nil
}

func (f fakeTokens) DeleteExpired(context.Context) (int64, error) { return 0, nil }

// ===== SUBMISSIONS =====

type fakeSubmissions struct{ r *fakeRepository }

func (f fakeSubmissions) Create(_ context.Context, submission *models.Submission) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	submission.ID = f.r.id()
	submission.CreatedAt = time.Now()
	f.r.submissions[submission.ID] = submission
	return nil
}

func (f fakeSubmissions) GetByID(_ context.Context, id uint) (*models.Submission, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if s, ok := f.r.submissions[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeSubmissions) UpdateStatus(_ context.Context, id uint, status models.SubmissionStatus) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	s, ok := f.r.submissions[id]
	if !ok {
		return repositories.ErrNotFound
	}
	s.Status = status
	return nil
}

// ===== CERTIFICATES =====

type fakeCerts struct{ r *fakeRepository }

func (f fakeCerts) Create(_ context.Context, cert *models.Certificate) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, taken := f.r.certsByRef[cert.RefNo]; taken {
		return repositories.ErrDuplicate
	}
	cert.ID = f.r.id()
	cert.CreatedAt = time.Now()
	f.r.certs[cert.ID] = cert
	f.r.certsByRef[cert.RefNo] = cert.ID
	return nil
}

func (f fakeCerts) GetByID(_ context.Context, id uint) (*models.Certificate, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if c, ok := f.r.certs[id]; ok {
		return c, nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeCerts) GetByRefNo(_ context.Context, refNo string) (*models.Certificate, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if id, ok := f.r.certsByRef[refNo]; ok {
		return f.r.certs[id], nil
	}
	return nil, repositories.ErrNotFound
}

func (f fakeCerts) List(_ context.Context, filters repositories.CertificateFilters) ([]*models.Certificate, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Certificate
	for _, c := range f.r.certs {
		if filters.UserID != nil && (c.UserID == nil || *c.UserID != *filters.UserID) {
			continue
		}
		if filters.Search != "" && !strings.Contains(c.HolderName, filters.Search) &&
			!strings.Contains(c.Course, filters.Search) && !strings.Contains(c.RefNo, filters.Search) {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (f fakeCerts) ExistsByRefNo(_ context.Context, refNo string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	_, ok := f.r.certsByRef[refNo]
	return ok, nil
}

func (f fakeCerts) SetActive(_ context.Context, id uint, active bool) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c, ok := f.r.certs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	c.IsActive = active
	return nil
}

func (f fakeCerts) ClaimForUser(_ context.Context, refNo string, userID uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	id, ok := f.r.certsByRef[refNo]
	if !ok {
		return repositories.ErrNotFound
	}
	c := f.r.certs[id]
	if c.UserID != nil {
		if *c.UserID == userID {
			return nil
		}
		return repositories.ErrDuplicate
	}
	if !c.IsActive {
		return repositories.ErrNotFound
	}
	c.UserID = &userID
	return nil
}

func (f fakeCerts) IncrementVerification(_ context.Context, refNo string, at time.Time) (*models.Certificate, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	id, ok := f.r.certsByRef[refNo]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := f.r.certs[id]
	if !c.IsActive {
		return nil, repositories.ErrNotFound
	}
	c.VerificationCount++
	c.LastVerifiedAt = &at
	snapshot := *c
	return &snapshot, nil
}

func (f fakeCerts) Stats(context.Context) (*repositories.CertificateStats, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	stats := &repositories.CertificateStats{
		TotalCertificates: int64(len(f.r.certs)),
		ByType:            map[models.CertificateType]int64{},
	}
	for _, c := range f.r.certs {
		if c.IsActive {
			stats.ActiveCertificates++
		}
		stats.TotalVerifications += c.VerificationCount
		stats.ByType[c.CertificateType]++
	}
	return stats, nil
}

func (f fakeCerts) Delete(_ context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c, ok := f.r.certs[id]
	if !ok {
		return repositories.ErrNotFound
	}
	delete(f.r.certsByRef, c.RefNo)
	delete(f.r.certs, id)
	return nil
}

// ===== VERIFICATION LOGS =====

type fakeLogs struct{ r *fakeRepository }

func (f fakeLogs) Create(_ context.Context, entry *models.VerificationLog) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	entry.ID = f.r.id()
	entry.CreatedAt = time.Now()
	f.r.logs = append(f.r.logs, entry)
	return nil
}

func (f fakeLogs) List(_ context.Context, filters repositories.VerificationLogFilters) ([]*models.VerificationLog, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.VerificationLog
	for _, l := range f.r.logs {
		if filters.RefNo != nil && l.RefNo != *filters.RefNo {
			continue
		}
		if filters.Status != nil && l.Status != *filters.Status {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (f fakeLogs) CountByRefNo(_ context.Context, refNo string) (int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var n int64
	for _, l := range f.r.logs {
		if l.RefNo == refNo {
			n++
		}
	}
	return n, nil
}
