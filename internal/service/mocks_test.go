package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/persistorai/podrestore/internal/federation"
	"github.com/persistorai/podrestore/internal/models"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.ErrorLevel)

	return l
}

type edgeKey struct {
	a, b uuid.UUID
}

// fakeStore is an in-memory ImportStore with the same insert-if-absent
// semantics as the PostgreSQL store.
type fakeStore struct {
	mu sync.Mutex

	accounts    map[string]*models.Account
	groups      map[string]*models.ContactGroup // accountID/name
	tags        map[string]*models.Tag
	followings  map[edgeKey]bool
	people      map[string]*models.Person
	content     map[string]*models.Content
	parts       map[edgeKey]bool
	contacts    map[edgeKey]*models.Contact
	memberships map[edgeKey]bool

	// failOn makes the named method return an error.
	failOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:    make(map[string]*models.Account),
		groups:      make(map[string]*models.ContactGroup),
		tags:        make(map[string]*models.Tag),
		followings:  make(map[edgeKey]bool),
		people:      make(map[string]*models.Person),
		content:     make(map[string]*models.Content),
		parts:       make(map[edgeKey]bool),
		contacts:    make(map[edgeKey]*models.Contact),
		memberships: make(map[edgeKey]bool),
	}
}

var errStorage = errors.New("connection refused")

func (f *fakeStore) fail(method string) error {
	if f.failOn == method {
		return fmt.Errorf("%s: %w", method, errStorage)
	}

	return nil
}

// addAccount seeds an existing account with default settings and profile.
func (f *fakeStore) addAccount(username, password string) *models.Account {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)

	acct := &models.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@local.example",
		PasswordHash: string(hash),
		Settings:     models.DefaultSettings(),
		Profile:      models.DefaultProfile(),
	}

	f.mu.Lock()
	f.accounts[username] = acct
	f.mu.Unlock()

	cp := *acct

	return &cp
}

func (f *fakeStore) account(username string) models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()

	return *f.accounts[username]
}

func (f *fakeStore) FindAccountByUsername(_ context.Context, username string) (*models.Account, error) {
	if err := f.fail("FindAccountByUsername"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.accounts[username]
	if !ok {
		return nil, models.ErrAccountNotFound
	}

	cp := *a

	return &cp, nil
}

func (f *fakeStore) FindOrCreateAccount(_ context.Context, na models.NewAccount) (*models.Account, bool, error) {
	if err := f.fail("FindOrCreateAccount"); err != nil {
		return nil, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.accounts[na.Username]; ok {
		cp := *a
		return &cp, false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(na.Password), bcrypt.MinCost)
	if err != nil {
		return nil, false, err
	}

	a := &models.Account{
		ID:             uuid.New(),
		Username:       na.Username,
		Email:          na.Email,
		PasswordHash:   string(hash),
		GettingStarted: na.GettingStarted,
		Settings:       models.DefaultSettings(),
		Profile:        models.DefaultProfile(),
		CreatedAt:      time.Now(),
	}
	f.accounts[na.Username] = a

	cp := *a

	return &cp, true, nil
}

func (f *fakeStore) byID(id uuid.UUID) *models.Account {
	for _, a := range f.accounts {
		if a.ID == id {
			return a
		}
	}

	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, accountID uuid.UUID, patch models.ProfilePatch) error {
	if err := f.fail("UpdateProfile"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a := f.byID(accountID)
	if a == nil {
		return models.ErrAccountNotFound
	}

	patch.Apply(&a.Profile)

	return nil
}

func (f *fakeStore) UpdateSettings(_ context.Context, accountID uuid.UUID, patch models.SettingsPatch) error {
	if err := f.fail("UpdateSettings"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a := f.byID(accountID)
	if a == nil {
		return models.ErrAccountNotFound
	}

	patch.Apply(&a.Settings)

	return nil
}

func groupKey(accountID uuid.UUID, name string) string {
	return accountID.String() + "/" + name
}

func (f *fakeStore) FindContactGroup(_ context.Context, accountID uuid.UUID, name string) (*models.ContactGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.groups[groupKey(accountID, name)]
	if !ok {
		return nil, models.ErrContactGroupNotFound
	}

	return g, nil
}

func (f *fakeStore) FindOrCreateContactGroup(_ context.Context, accountID uuid.UUID, name string, chat bool) (*models.ContactGroup, bool, error) {
	if err := f.fail("FindOrCreateContactGroup"); err != nil {
		return nil, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.groups[groupKey(accountID, name)]; ok {
		return g, false, nil
	}

	g := &models.ContactGroup{ID: uuid.New(), AccountID: accountID, Name: name, ChatEnabled: chat}
	f.groups[groupKey(accountID, name)] = g

	return g, true, nil
}

func (f *fakeStore) FindOrCreateTag(_ context.Context, name string) (*models.Tag, error) {
	if err := f.fail("FindOrCreateTag"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.tags[name]; ok {
		return t, nil
	}

	t := &models.Tag{ID: uuid.New(), Name: name}
	f.tags[name] = t

	return t, nil
}

func (f *fakeStore) FollowTag(_ context.Context, accountID, tagID uuid.UUID) (bool, error) {
	if err := f.fail("FollowTag"); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	k := edgeKey{accountID, tagID}
	if f.followings[k] {
		return false, nil
	}

	f.followings[k] = true

	return true, nil
}

// followedTags returns the names of tags the account follows.
func (f *fakeStore) followedTags(accountID uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for k := range f.followings {
		if k.a != accountID {
			continue
		}

		for _, t := range f.tags {
			if t.ID == k.b {
				names = append(names, t.Name)
			}
		}
	}

	return names
}

func (f *fakeStore) addContent(guid string) *models.Content {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := &models.Content{ID: uuid.New(), GUID: guid}
	f.content[guid] = c

	return c
}

func (f *fakeStore) FindContentByGUID(_ context.Context, guid string) (*models.Content, error) {
	if err := f.fail("FindContentByGUID"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.content[guid]
	if !ok {
		return nil, models.ErrContentNotFound
	}

	return c, nil
}

func (f *fakeStore) UpsertRemoteContent(_ context.Context, authorID uuid.UUID, rc federation.RemoteContent) (*models.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.content[rc.GUID]; ok {
		return c, nil
	}

	c := &models.Content{ID: uuid.New(), GUID: rc.GUID, AuthorID: authorID, Text: rc.Text, Public: rc.Public}
	f.content[rc.GUID] = c

	return c, nil
}

func (f *fakeStore) Participate(_ context.Context, accountID, contentID uuid.UUID) (bool, error) {
	if err := f.fail("Participate"); err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	k := edgeKey{accountID, contentID}
	if f.parts[k] {
		return false, nil
	}

	f.parts[k] = true

	return true, nil
}

func (f *fakeStore) participationCount(accountID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for k := range f.parts {
		if k.a == accountID {
			n++
		}
	}

	return n
}

func (f *fakeStore) FindPersonByHandle(_ context.Context, handle string) (*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.people[handle]
	if !ok {
		return nil, models.ErrPersonNotFound
	}

	return p, nil
}

func (f *fakeStore) UpsertPerson(_ context.Context, id federation.Identity) (*models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.people[id.Handle]; ok {
		return p, nil
	}

	p := &models.Person{ID: uuid.New(), Handle: id.Handle, GUID: id.GUID, PodURL: id.PodURL}
	f.people[id.Handle] = p

	return p, nil
}

func (f *fakeStore) AddContact(_ context.Context, accountID, personID uuid.UUID, sharing, receiving bool) (*models.Contact, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := edgeKey{accountID, personID}
	if c, ok := f.contacts[k]; ok {
		return c, false, nil
	}

	c := &models.Contact{ID: uuid.New(), AccountID: accountID, PersonID: personID, Sharing: sharing, Receiving: receiving}
	f.contacts[k] = c

	return c, true, nil
}

func (f *fakeStore) AddMembership(_ context.Context, contactID, groupID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := edgeKey{contactID, groupID}
	if f.memberships[k] {
		return false, nil
	}

	f.memberships[k] = true

	return true, nil
}

// fakeResolver answers from a fixed table; unknown handles are not found.
type fakeResolver struct {
	mu         sync.Mutex
	identities map[string]*federation.Identity
	errs       map[string]error
	delay      time.Duration
	calls      []string
}

func (r *fakeResolver) Resolve(ctx context.Context, handle string) (*federation.Identity, error) {
	r.mu.Lock()
	r.calls = append(r.calls, handle)
	id := r.identities[strings.ToLower(handle)]
	err := r.errs[strings.ToLower(handle)]
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", federation.ErrUnreachable, ctx.Err())
		}
	}

	if err != nil {
		return nil, err
	}

	if id == nil {
		return nil, federation.ErrNotFound
	}

	cp := *id

	return &cp, nil
}

// fakeFetcher serves posts from a fixed table.
type fakeFetcher struct {
	mu    sync.Mutex
	posts map[string]*federation.RemoteContent
	calls int
}

func (f *fakeFetcher) FetchContent(_ context.Context, author *federation.Identity, guid string) (*federation.RemoteContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	rc, ok := f.posts[guid]
	if !ok {
		return nil, federation.ErrNotFound
	}

	cp := *rc
	if cp.Author == "" {
		cp.Author = author.Handle
	}

	return &cp, nil
}

// mockAuditor records audit calls.
type mockAuditor struct {
	mu    sync.Mutex
	calls []AuditJob

	err error
}

func (m *mockAuditor) RecordAudit(_ context.Context, runID, action, username, actor string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, AuditJob{
		RunID:    runID,
		Action:   action,
		Username: username,
		Actor:    actor,
		Detail:   detail,
	})
	return m.err
}

func (m *mockAuditor) getCalls() []AuditJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]AuditJob, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// mockEnqueuer records enqueued audit jobs.
type mockEnqueuer struct {
	mu   sync.Mutex
	jobs []*AuditJob
}

func (m *mockEnqueuer) Enqueue(job *AuditJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

// mockPublisher records published event types.
type mockPublisher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockPublisher) BroadcastEvent(eventType, _ string, _ json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventType)
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}
