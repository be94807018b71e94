package accounts

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache/cachetest"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/logger"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/otp"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/session"
)

type memUsers struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*User
	profiles map[uuid.UUID]ProfileInfo
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]*User{}, profiles: map[uuid.UUID]ProfileInfo{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, user *User, profile ProfileInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	m.profiles[user.ID] = profile
	return nil
}

func (m *memUsers) mutate(id uuid.UUID, fn func(u *User)) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	fn(u)
	cp := *u
	return &cp, nil
}

func (m *memUsers) Activate(_ context.Context, id uuid.UUID) error {
	_, err := m.mutate(id, func(u *User) { u.IsActive = true })
	return err
}

func (m *memUsers) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	_, err := m.mutate(id, func(u *User) { u.PasswordHash = hash })
	return err
}

func (m *memUsers) UpdateNames(_ context.Context, id uuid.UUID, update NameUpdate) (*User, error) {
	return m.mutate(id, func(u *User) {
		if update.FirstName != nil {
			u.FirstName = *update.FirstName
		}
		if update.LastName != nil {
			u.LastName = *update.LastName
		}
	})
}

func (m *memUsers) UpdateEmail(_ context.Context, id uuid.UUID, email string) (*User, error) {
	return m.mutate(id, func(u *User) { u.Email = email })
}

type memCodes struct {
	mu    sync.Mutex
	codes map[uuid.UUID]*otp.Code
}

func (s *memCodes) Exists(_ context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *memCodes) Insert(_ context.Context, code *otp.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *code
	s.codes[code.ID] = &cp
	return nil
}

func (s *memCodes) FindByValue(_ context.Context, value string) (*otp.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matches []*otp.Code
	for _, c := range s.codes {
		if c.Value == value {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, otp.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	cp := *matches[0]
	return &cp, nil
}

func (s *memCodes) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[id]; !ok {
		return otp.ErrNotFound
	}
	delete(s.codes, id)
	return nil
}

func (s *memCodes) DeleteByOwnerPurpose(_ context.Context, owner uuid.UUID, purpose otp.Purpose) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.codes {
		if c.OwnerID == owner && c.Purpose == purpose {
			delete(s.codes, id)
			n++
		}
	}
	return n, nil
}

func (s *memCodes) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.codes {
		if !c.CreatedAt.After(cutoff) {
			delete(s.codes, id)
			n++
		}
	}
	return n, nil
}

func (s *memCodes) count(owner uuid.UUID, purpose otp.Purpose) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.codes {
		if c.OwnerID == owner && c.Purpose == purpose {
			n++
		}
	}
	return n
}

type sentMail struct {
	to, subject, body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

var codePattern = regexp.MustCompile(`: ([0-9]+)\n`)

// lastCode returns the code in the latest email.
func (f *fakeSender) lastCode(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	m := codePattern.FindStringSubmatch(f.sent[len(f.sent)-1].body)
	require.Len(t, m, 2)
	return m[1]
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func (f *fakeSessions) Create(_ context.Context, userID uuid.UUID, email string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &session.Session{ID: uuid.NewString(), UserID: userID, Email: email, ExpiresAt: time.Now().Add(time.Hour)}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessions) countFor(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type memPending struct {
	mu     sync.Mutex
	emails map[uuid.UUID]PendingEmail
}

func (p *memPending) Put(_ context.Context, userID uuid.UUID, pending PendingEmail, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emails[userID] = pending
	return nil
}

func (p *memPending) Get(_ context.Context, userID uuid.UUID) (*PendingEmail, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.emails[userID]
	if !ok {
		return nil, ErrNoPendingEmail
	}
	return &e, nil
}

func (p *memPending) Delete(_ context.Context, userID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.emails, userID)
	return nil
}

type fixture struct {
	svc      Service
	users    *memUsers
	codes    *memCodes
	sender   *fakeSender
	sessions *fakeSessions
	manager  *otp.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLimiter(t, nil)
}

func newFixtureWithLimiter(t *testing.T, limiter *otp.Limiter) *fixture {
	t.Helper()
	f := &fixture{
		users:    newMemUsers(),
		codes:    &memCodes{codes: map[uuid.UUID]*otp.Code{}},
		sender:   &fakeSender{},
		sessions: &fakeSessions{sessions: map[string]*session.Session{}},
	}
	log := logger.Discard()
	f.manager = otp.NewManager(f.codes, otp.NewGenerator(6, otp.Numeric, nil), nil, 5*time.Minute, log)
	f.svc = NewService(f.users, f.manager, limiter, f.sender, f.sessions, &memPending{emails: map[uuid.UUID]PendingEmail{}}, log)
	return f
}

func (f *fixture) register(t *testing.T, email string) *User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), Registration{Email: email, Password: "s3cret-pass", FirstName: "Ada"})
	require.NoError(t, err)
	return u
}

func TestRegister_CreatesInactiveUserAndSendsCode(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.Register(context.Background(), Registration{
		Email:    "  Ada@Example.com ",
		Password: "s3cret-pass",
		Profile:  ProfileInfo{Gender: "F", PhoneNumber: "555"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", u.Email)
	assert.False(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))
	assert.Equal(t, "F", f.users.profiles[u.ID].Gender)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "ada@example.com", f.sender.sent[0].to)
	assert.Equal(t, "Account Verification", f.sender.sent[0].subject)
	assert.Contains(t, f.sender.sent[0].body, "This code will expire in 5 minutes.")
	assert.Equal(t, 1, f.codes.count(u.ID, otp.PurposeAccountVerification))
}

func TestRegister_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, Registration{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, err = f.svc.Register(ctx, Registration{Email: "a@example.com", Password: "123456789"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	f.register(t, "a@example.com")
	_, err = f.svc.Register(ctx, Registration{Email: "A@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegister_EmailFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("smtp down")

	u, err := f.svc.Register(context.Background(), Registration{Email: "a@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrEmailDelivery)
	require.NotNil(t, u)
	_, findErr := f.users.FindByEmail(context.Background(), "a@example.com")
	assert.NoError(t, findErr)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")

	_, _, err := f.svc.Login(ctx, "a@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInactive)

	require.NoError(t, f.users.Activate(ctx, u.ID))

	_, _, err = f.svc.Login(ctx, "a@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, sess, err := f.svc.Login(ctx, "A@Example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.ID, sess.UserID)
}

func TestVerifyOTP_ActivatesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")

	res, err := f.svc.VerifyOTP(ctx, f.sender.lastCode(t))
	require.NoError(t, err)

	assert.Equal(t, otp.PurposeAccountVerification, res.Purpose)
	require.NotNil(t, res.Session)
	assert.True(t, res.User.IsActive)
	assert.Equal(t, 0, f.codes.count(u.ID, otp.PurposeAccountVerification))

	stored, _ := f.users.FindByID(ctx, u.ID)
	assert.True(t, stored.IsActive)
}

func TestVerifyOTP_UnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.VerifyOTP(context.Background(), "000000")
	assert.ErrorIs(t, err, otp.ErrNotFound)
}

func TestActivateAccount_RejectsOtherPurposes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")

	require.NoError(t, f.svc.SendOTP(ctx, "a@example.com", otp.PurposeResetPassword))
	_, err := f.svc.ActivateAccount(ctx, f.sender.lastCode(t))
	assert.ErrorIs(t, err, ErrWrongPurpose)
	assert.Equal(t, 1, f.codes.count(u.ID, otp.PurposeResetPassword))
}

func TestSendOTP_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SendOTP(context.Background(), "nobody@example.com", otp.PurposeResetPassword)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")
	first := f.sender.lastCode(t)

	require.NoError(t, f.svc.ResendVerification(ctx, "a@example.com"))
	assert.Equal(t, 1, f.codes.count(u.ID, otp.PurposeAccountVerification))
	second := f.sender.lastCode(t)
	if first != second {
		_, err := f.svc.VerifyOTP(ctx, first)
		assert.ErrorIs(t, err, otp.ErrNotFound)
	}

	assert.NoError(t, f.svc.ResendVerification(ctx, "nobody@example.com"))

	_, err := f.svc.VerifyOTP(ctx, second)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResendVerification(ctx, "a@example.com"), ErrAlreadyActive)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")
	_, err := f.svc.VerifyOTP(ctx, f.sender.lastCode(t))
	require.NoError(t, err)
	_, _, err = f.svc.Login(ctx, "a@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, 2, f.sessions.countFor(u.ID))

	require.NoError(t, f.svc.SendOTP(ctx, "a@example.com", otp.PurposeResetPassword))
	code := f.sender.lastCode(t)
	assert.Equal(t, "Password Reset Request", f.sender.sent[len(f.sender.sent)-1].subject)

	res, err := f.svc.VerifyOTP(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, otp.PurposeResetPassword, res.Purpose)
	assert.Nil(t, res.Session)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, code, "short"), ErrWeakPassword)
	require.NoError(t, f.svc.ResetPassword(ctx, code, "brand-new-pass"))

	assert.Equal(t, 0, f.sessions.countFor(u.ID))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, code, "brand-new-pass"), otp.ErrNotFound)

	_, _, err = f.svc.Login(ctx, "a@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "a@example.com", "brand-new-pass")
	assert.NoError(t, err)
}

func TestEmailChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")
	other := f.register(t, "b@example.com")

	assert.ErrorIs(t, f.svc.RequestEmailChange(ctx, u.ID, "b@example.com"), ErrEmailExists)

	require.NoError(t, f.svc.RequestEmailChange(ctx, u.ID, "New@Example.com"))
	last := f.sender.sent[len(f.sender.sent)-1]
	assert.Equal(t, "new@example.com", last.to)
	assert.Equal(t, "Email Change Request", last.subject)
	code := f.sender.lastCode(t)

	_, err := f.svc.ConfirmEmailChange(ctx, other.ID, code)
	assert.ErrorIs(t, err, otp.ErrNotFound)

	updated, err := f.svc.ConfirmEmailChange(ctx, u.ID, code)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)

	_, err = f.svc.ConfirmEmailChange(ctx, u.ID, code)
	assert.ErrorIs(t, err, otp.ErrNotFound)
}

func TestSendOTP_RefusesEmailChange(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@example.com")

	err := f.svc.SendOTP(context.Background(), "a@example.com", otp.PurposeChangeEmail)
	assert.ErrorIs(t, err, ErrWrongPurpose)
	assert.Equal(t, 0, f.codes.count(u.ID, otp.PurposeChangeEmail))
}

func TestEmailChange_OnlyCodeSentToNewAddressConfirms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")

	require.NoError(t, f.svc.RequestEmailChange(ctx, u.ID, "victim@example.com"))
	mailed := f.sender.lastCode(t)

	// A change-email code the user holds but that was never mailed to the
	// pending address.
	own, err := f.manager.Issue(ctx, u.ID, otp.PurposeChangeEmail)
	require.NoError(t, err)

	_, err = f.svc.ConfirmEmailChange(ctx, u.ID, own.Value)
	assert.ErrorIs(t, err, otp.ErrNotFound)
	stored, _ := f.users.FindByID(ctx, u.ID)
	assert.Equal(t, "a@example.com", stored.Email)

	updated, err := f.svc.ConfirmEmailChange(ctx, u.ID, mailed)
	require.NoError(t, err)
	assert.Equal(t, "victim@example.com", updated.Email)
}

func TestEmailChange_NewRequestReplacesOldCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")

	require.NoError(t, f.svc.RequestEmailChange(ctx, u.ID, "first@example.com"))
	first := f.sender.lastCode(t)
	require.NoError(t, f.svc.RequestEmailChange(ctx, u.ID, "second@example.com"))
	second := f.sender.lastCode(t)

	if first != second {
		_, err := f.svc.ConfirmEmailChange(ctx, u.ID, first)
		assert.ErrorIs(t, err, otp.ErrNotFound)
	}
	updated, err := f.svc.ConfirmEmailChange(ctx, u.ID, second)
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", updated.Email)
}

func TestResetPassword_CodeUsableOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@example.com")
	require.NoError(t, f.users.Activate(ctx, u.ID))

	require.NoError(t, f.svc.SendOTP(ctx, "a@example.com", otp.PurposeResetPassword))
	code := f.sender.lastCode(t)

	passwords := []string{"first-new-pass", "second-new-pass"}
	errs := make([]error, len(passwords))
	var wg sync.WaitGroup
	for i, pw := range passwords {
		wg.Add(1)
		go func(i int, pw string) {
			defer wg.Done()
			errs[i] = f.svc.ResetPassword(ctx, code, pw)
		}(i, pw)
	}
	wg.Wait()

	var ok, gone int
	winner := ""
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
			winner = passwords[i]
		case errors.Is(err, otp.ErrNotFound):
			gone++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, gone)

	_, _, err := f.svc.Login(ctx, "a@example.com", winner)
	assert.NoError(t, err)
}

func TestResetPassword_ClearsThrottle(t *testing.T) {
	limiter := otp.NewLimiter(cachetest.New(t), time.Hour, 5, time.Minute)
	f := newFixtureWithLimiter(t, limiter)
	ctx := context.Background()
	u := f.register(t, "a@example.com")
	require.NoError(t, f.users.Activate(ctx, u.ID))

	require.NoError(t, f.svc.SendOTP(ctx, "a@example.com", otp.PurposeResetPassword))
	code := f.sender.lastCode(t)
	assert.ErrorIs(t, f.svc.SendOTP(ctx, "a@example.com", otp.PurposeResetPassword), otp.ErrTooManyRequests)

	require.NoError(t, f.svc.ResetPassword(ctx, code, "brand-new-pass"))
	assert.NoError(t, f.svc.SendOTP(ctx, "a@example.com", otp.PurposeResetPassword))
}

func TestUpdateMe_TrimsNames(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@example.com")

	first := "  Grace "
	got, err := f.svc.UpdateMe(context.Background(), u.ID, NameUpdate{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.FirstName)
	assert.Equal(t, "", got.LastName)
}
