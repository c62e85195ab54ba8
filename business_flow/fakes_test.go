package businessflow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/business-registry/models"
	"github.com/amirphl/business-registry/repository"
)

// memState is the rollback unit of memStore
type memState struct {
	users          map[uint]models.User
	grants         map[uint][]string
	businesses     map[uint]models.BusinessProfile
	reviews        map[uint]models.Review
	votes          map[uint]models.ReviewVote
	accreditations map[uint]models.Accreditation
	history        []models.AccreditationHistory
	complaints     map[uint]models.Complaint
	threads        []models.ComplaintThread
	subscribers    map[uint]models.NewsletterSubscriber
	subscriptions  map[uint]models.BusinessSubscription
	notifications  []models.Notification
	sessions       map[uint]models.UserSession
	resets         map[uint]models.PasswordReset
	attempts       []models.LoginAttempt
	audits         []models.AuditLog
	searches       []models.SearchHistory
	templates      map[uint]models.NewsletterTemplate
	campaigns      map[uint]models.NewsletterCampaign
}

func (s memState) clone() memState {
	return memState{
		users:          maps.Clone(s.users),
		grants:         maps.Clone(s.grants),
		businesses:     maps.Clone(s.businesses),
		reviews:        maps.Clone(s.reviews),
		votes:          maps.Clone(s.votes),
		accreditations: maps.Clone(s.accreditations),
		history:        slices.Clone(s.history),
		complaints:     maps.Clone(s.complaints),
		threads:        slices.Clone(s.threads),
		subscribers:    maps.Clone(s.subscribers),
		subscriptions:  maps.Clone(s.subscriptions),
		notifications:  slices.Clone(s.notifications),
		sessions:       maps.Clone(s.sessions),
		resets:         maps.Clone(s.resets),
		attempts:       slices.Clone(s.attempts),
		audits:         slices.Clone(s.audits),
		searches:       slices.Clone(s.searches),
		templates:      maps.Clone(s.templates),
		campaigns:      maps.Clone(s.campaigns),
	}
}

// memStore backs the repository fakes. Not safe for concurrent use.
type memStore struct {
	memState
	nextID uint

	failLevelUpdate    bool
	failUserLookup     bool
	failResetSave      bool
	failSubscriberList bool
	commits            int
	rollbacks          int

	// outbound mail is not transactional
	emails []sentEmail
}

func newMemStore() *memStore {
	return &memStore{memState: memState{
		users:          map[uint]models.User{},
		grants:         map[uint][]string{},
		businesses:     map[uint]models.BusinessProfile{},
		reviews:        map[uint]models.Review{},
		votes:          map[uint]models.ReviewVote{},
		accreditations: map[uint]models.Accreditation{},
		complaints:     map[uint]models.Complaint{},
		subscribers:    map[uint]models.NewsletterSubscriber{},
		subscriptions:  map[uint]models.BusinessSubscription{},
		sessions:       map[uint]models.UserSession{},
		resets:         map[uint]models.PasswordReset{},
		templates:      map[uint]models.NewsletterTemplate{},
		campaigns:      map[uint]models.NewsletterCampaign{},
	}}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

// WithTransaction restores the pre-call state when fn fails
func (s *memStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	snapshot := s.memState.clone()
	if err := fn(ctx); err != nil {
		s.memState = snapshot
		s.rollbacks++
		return err
	}
	s.commits++
	return nil
}

func (s *memStore) addUser(userType models.UserType) uint {
	id := s.id()
	s.users[id] = models.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id), UserType: userType}
	return id
}

func (s *memStore) addBusiness(ownerID uint) uint {
	id := s.id()
	s.businesses[id] = models.BusinessProfile{
		ID:                 id,
		OwnerID:            ownerID,
		LegalName:          "Acme Plumbing",
		Email:              "owner@acme.test",
		Status:             models.BusinessStatusActive,
		AccreditationLevel: models.AccreditationLevelNone,
	}
	return id
}

func (s *memStore) grant(userID uint, permission string) {
	s.grants[userID] = append(s.grants[userID], permission)
}

func ptrTo[T any](v T) *T { return &v }

var errInjected = errors.New("injected failure")

type fakeUserRepo struct {
	repository.UserRepository
	s *memStore
}

func (r fakeUserRepo) ByID(_ context.Context, id uint) (*models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r fakeUserRepo) ByEmail(_ context.Context, email string) (*models.User, error) {
	if r.s.failUserLookup {
		return nil, errInjected
	}
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) UpdatePassword(_ context.Context, userID uint, passwordHash string) error {
	u := r.s.users[userID]
	u.PasswordHash = passwordHash
	r.s.users[userID] = u
	return nil
}

func (r fakeUserRepo) TouchLastLogin(_ context.Context, userID uint, at time.Time) error {
	u := r.s.users[userID]
	u.LastLoginAt = &at
	r.s.users[userID] = u
	return nil
}

type fakePermissionRepo struct {
	repository.UserPermissionRepository
	s *memStore
}

func (r fakePermissionRepo) Has(_ context.Context, userID uint, permission string) (bool, error) {
	return slices.Contains(r.s.grants[userID], permission), nil
}

type fakeBusinessRepo struct {
	repository.BusinessProfileRepository
	s *memStore
}

func (r fakeBusinessRepo) ByID(_ context.Context, id uint) (*models.BusinessProfile, error) {
	b, ok := r.s.businesses[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r fakeBusinessRepo) UpdateAccreditationLevel(_ context.Context, id uint, level models.AccreditationLevel) error {
	if r.s.failLevelUpdate {
		return errInjected
	}
	b := r.s.businesses[id]
	b.AccreditationLevel = level
	r.s.businesses[id] = b
	return nil
}

func (r fakeBusinessRepo) UpdateFields(_ context.Context, id uint, fields map[string]any) error {
	b := r.s.businesses[id]
	for key, v := range fields {
		switch key {
		case "legal_name":
			b.LegalName = v.(string)
		case "city":
			b.City = v.(string)
		case "email":
			b.Email = v.(string)
		case "trading_name":
			b.TradingName = v.(*string)
		case "description":
			b.Description = v.(*string)
		}
	}
	r.s.businesses[id] = b
	return nil
}

func (r fakeBusinessRepo) UpdateStatus(_ context.Context, id uint, status models.BusinessStatus) error {
	b := r.s.businesses[id]
	b.Status = status
	r.s.businesses[id] = b
	return nil
}

func (r fakeBusinessRepo) matches(b models.BusinessProfile, f models.BusinessProfileFilter) bool {
	if f.Name != nil {
		name := strings.ToLower(*f.Name)
		trading := ""
		if b.TradingName != nil {
			trading = strings.ToLower(*b.TradingName)
		}
		if !strings.Contains(strings.ToLower(b.LegalName), name) && !strings.Contains(trading, name) {
			return false
		}
	}
	switch {
	case f.BusinessType != nil && !strings.EqualFold(b.BusinessType, *f.BusinessType):
		return false
	case f.City != nil && !strings.EqualFold(b.City, *f.City):
		return false
	case f.State != nil && !strings.EqualFold(b.State, *f.State):
		return false
	case f.Country != nil && !strings.EqualFold(b.Country, *f.Country):
		return false
	case f.Status != nil && b.Status != *f.Status:
		return false
	case f.AccreditationLevel != nil && b.AccreditationLevel != *f.AccreditationLevel:
		return false
	case f.MinRating != nil && b.Rating < *f.MinRating:
		return false
	}
	return true
}

func (r fakeBusinessRepo) Count(_ context.Context, f models.BusinessProfileFilter) (int64, error) {
	var n int64
	for _, b := range r.s.businesses {
		if r.matches(b, f) {
			n++
		}
	}
	return n, nil
}

// ByFilter orders by rating, then review count, then id
func (r fakeBusinessRepo) ByFilter(_ context.Context, f models.BusinessProfileFilter, _ string, limit, offset int) ([]*models.BusinessProfile, error) {
	var out []*models.BusinessProfile
	for _, b := range r.s.businesses {
		if r.matches(b, f) {
			out = append(out, &b)
		}
	}
	slices.SortFunc(out, func(a, b *models.BusinessProfile) int {
		switch {
		case a.Rating != b.Rating:
			if a.Rating > b.Rating {
				return -1
			}
			return 1
		case a.TotalReviews != b.TotalReviews:
			return int(b.TotalReviews - a.TotalReviews)
		default:
			return int(a.ID) - int(b.ID)
		}
	})
	return page(out, limit, offset), nil
}

// RecomputeRating mirrors the SQL aggregate over approved reviews
func (r fakeBusinessRepo) RecomputeRating(_ context.Context, id uint) error {
	var sum float64
	var n int64
	for _, review := range r.s.reviews {
		if review.BusinessID == id && review.Status == models.ReviewStatusApproved {
			sum += review.Rating
			n++
		}
	}
	b := r.s.businesses[id]
	b.TotalReviews = n
	b.Rating = 0
	if n > 0 {
		b.Rating = sum / float64(n)
	}
	r.s.businesses[id] = b
	return nil
}

type fakeReviewRepo struct {
	repository.ReviewRepository
	s *memStore
}

func (r fakeReviewRepo) ByID(_ context.Context, id uint) (*models.Review, error) {
	review, ok := r.s.reviews[id]
	if !ok {
		return nil, nil
	}
	return &review, nil
}

func (r fakeReviewRepo) Save(_ context.Context, review *models.Review) error {
	review.ID = r.s.id()
	r.s.reviews[review.ID] = *review
	return nil
}

func (r fakeReviewRepo) Update(_ context.Context, review *models.Review) error {
	r.s.reviews[review.ID] = *review
	return nil
}

func (r fakeReviewRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.reviews, id)
	return nil
}

func (r fakeReviewRepo) ByUserAndBusiness(_ context.Context, userID, businessID uint) (*models.Review, error) {
	for _, review := range r.s.reviews {
		if review.UserID == userID && review.BusinessID == businessID {
			return &review, nil
		}
	}
	return nil, nil
}

func (r fakeReviewRepo) SetVoteCounts(_ context.Context, reviewID uint, helpful, notHelpful int64) error {
	review := r.s.reviews[reviewID]
	review.HelpfulCount = helpful
	review.NotHelpfulCount = notHelpful
	r.s.reviews[reviewID] = review
	return nil
}

type fakeVoteRepo struct {
	repository.ReviewVoteRepository
	s *memStore
}

func (r fakeVoteRepo) Save(_ context.Context, vote *models.ReviewVote) error {
	vote.ID = r.s.id()
	r.s.votes[vote.ID] = *vote
	return nil
}

func (r fakeVoteRepo) Update(_ context.Context, vote *models.ReviewVote) error {
	r.s.votes[vote.ID] = *vote
	return nil
}

func (r fakeVoteRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.votes, id)
	return nil
}

func (r fakeVoteRepo) ByReviewAndUser(_ context.Context, reviewID, userID uint) (*models.ReviewVote, error) {
	for _, v := range r.s.votes {
		if v.ReviewID == reviewID && v.UserID == userID {
			return &v, nil
		}
	}
	return nil, nil
}

func (r fakeVoteRepo) CountByType(_ context.Context, reviewID uint) (int64, int64, error) {
	var helpful, notHelpful int64
	for _, v := range r.s.votes {
		if v.ReviewID != reviewID {
			continue
		}
		if v.VoteType == models.VoteTypeHelpful {
			helpful++
		} else {
			notHelpful++
		}
	}
	return helpful, notHelpful, nil
}

type fakeNotificationRepo struct {
	repository.NotificationRepository
	s *memStore
}

func (r fakeNotificationRepo) Save(_ context.Context, n *models.Notification) error {
	n.ID = r.s.id()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

type fakeAccreditationRepo struct {
	repository.AccreditationRepository
	s *memStore
}

func (r fakeAccreditationRepo) ByID(_ context.Context, id uint) (*models.Accreditation, error) {
	a, ok := r.s.accreditations[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r fakeAccreditationRepo) Save(_ context.Context, a *models.Accreditation) error {
	a.ID = r.s.id()
	r.s.accreditations[a.ID] = *a
	return nil
}

func (r fakeAccreditationRepo) Update(_ context.Context, a *models.Accreditation) error {
	r.s.accreditations[a.ID] = *a
	return nil
}

func (r fakeAccreditationRepo) matches(a models.Accreditation, f models.AccreditationFilter) bool {
	switch {
	case f.BusinessID != nil && a.BusinessID != *f.BusinessID:
		return false
	case f.Status != nil && a.Status != *f.Status:
		return false
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status):
		return false
	case f.ExpiresAfter != nil && (a.ExpiryDate == nil || a.ExpiryDate.Before(*f.ExpiresAfter)):
		return false
	case f.ExpiresBefore != nil && (a.ExpiryDate == nil || a.ExpiryDate.After(*f.ExpiresBefore)):
		return false
	}
	return true
}

func (r fakeAccreditationRepo) ByFilter(_ context.Context, f models.AccreditationFilter, _ string, _, _ int) ([]*models.Accreditation, error) {
	var out []*models.Accreditation
	for _, id := range slices.Sorted(maps.Keys(r.s.accreditations)) {
		a := r.s.accreditations[id]
		if r.matches(a, f) {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r fakeAccreditationRepo) Exists(ctx context.Context, f models.AccreditationFilter) (bool, error) {
	found, err := r.ByFilter(ctx, f, "", 0, 0)
	return len(found) > 0, err
}

type fakeHistoryRepo struct {
	repository.AccreditationHistoryRepository
	s *memStore
}

func (r fakeHistoryRepo) Save(_ context.Context, entry *models.AccreditationHistory) error {
	entry.ID = r.s.id()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r fakeHistoryRepo) ListByAccreditation(_ context.Context, id uint) ([]*models.AccreditationHistory, error) {
	var out []*models.AccreditationHistory
	for _, h := range r.s.history {
		if h.AccreditationID == id {
			out = append(out, &h)
		}
	}
	return out, nil
}

type fakeComplaintRepo struct {
	repository.ComplaintRepository
	s *memStore
}

func (r fakeComplaintRepo) ByID(_ context.Context, id uint) (*models.Complaint, error) {
	c, ok := r.s.complaints[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r fakeComplaintRepo) ByComplaintID(_ context.Context, code string) (*models.Complaint, error) {
	for _, c := range r.s.complaints {
		if c.ComplaintID == code {
			return &c, nil
		}
	}
	return nil, nil
}

func (r fakeComplaintRepo) Save(_ context.Context, c *models.Complaint) error {
	c.ID = r.s.id()
	r.s.complaints[c.ID] = *c
	return nil
}

func (r fakeComplaintRepo) Update(_ context.Context, c *models.Complaint) error {
	r.s.complaints[c.ID] = *c
	return nil
}

type fakeThreadRepo struct {
	repository.ComplaintThreadRepository
	s *memStore
}

func (r fakeThreadRepo) Save(_ context.Context, entry *models.ComplaintThread) error {
	entry.ID = r.s.id()
	r.s.threads = append(r.s.threads, *entry)
	return nil
}

func (r fakeThreadRepo) ListByComplaint(_ context.Context, complaintID uint, includeInternal bool) ([]*models.ComplaintThread, error) {
	var out []*models.ComplaintThread
	for _, t := range r.s.threads {
		if t.ComplaintID == complaintID && (includeInternal || !t.IsInternal) {
			out = append(out, &t)
		}
	}
	return out, nil
}

type fakeSubscriberRepo struct {
	repository.NewsletterSubscriberRepository
	s *memStore
}

func (r fakeSubscriberRepo) ByBusinessAndEmail(_ context.Context, businessID uint, email string) (*models.NewsletterSubscriber, error) {
	for _, sub := range r.s.subscribers {
		if sub.BusinessID == businessID && strings.EqualFold(sub.Email, email) {
			return &sub, nil
		}
	}
	return nil, nil
}

func (r fakeSubscriberRepo) Count(_ context.Context, f models.NewsletterSubscriberFilter) (int64, error) {
	var n int64
	for _, sub := range r.s.subscribers {
		if f.BusinessID != nil && sub.BusinessID != *f.BusinessID {
			continue
		}
		if f.Status != nil && sub.Status != *f.Status {
			continue
		}
		n++
	}
	return n, nil
}

func (r fakeSubscriberRepo) ByFilter(_ context.Context, f models.NewsletterSubscriberFilter, _ string, limit, offset int) ([]*models.NewsletterSubscriber, error) {
	if r.s.failSubscriberList {
		return nil, errInjected
	}
	var out []*models.NewsletterSubscriber
	for _, id := range slices.Sorted(maps.Keys(r.s.subscribers)) {
		sub := r.s.subscribers[id]
		if f.BusinessID != nil && sub.BusinessID != *f.BusinessID {
			continue
		}
		if f.Status != nil && sub.Status != *f.Status {
			continue
		}
		out = append(out, &sub)
	}
	return page(out, limit, offset), nil
}

func (r fakeSubscriberRepo) Save(_ context.Context, sub *models.NewsletterSubscriber) error {
	sub.ID = r.s.id()
	r.s.subscribers[sub.ID] = *sub
	return nil
}

func (r fakeSubscriberRepo) Update(_ context.Context, sub *models.NewsletterSubscriber) error {
	r.s.subscribers[sub.ID] = *sub
	return nil
}

type fakeSubscriptionRepo struct {
	repository.BusinessSubscriptionRepository
	s *memStore
}

func (r fakeSubscriptionRepo) ByBusiness(_ context.Context, businessID uint) (*models.BusinessSubscription, error) {
	sub, ok := r.s.subscriptions[businessID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

// expireIn moves the expiry date of an accreditation to now+d
func (s *memStore) expireIn(id uint, d time.Duration) {
	a := s.accreditations[id]
	a.ExpiryDate = ptrTo(time.Now().UTC().Add(d))
	s.accreditations[id] = a
}

// page applies limit and offset the way the SQL repositories do; zero limit means all
func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

type sentEmail struct {
	to, subject, body string
}

// fakeMailer records outbound email on the store
type fakeMailer struct {
	s *memStore
}

func (m fakeMailer) SendEmail(email, subject, message string) error {
	m.s.emails = append(m.s.emails, sentEmail{to: email, subject: subject, body: message})
	return nil
}

type fakeSessionRepo struct {
	repository.UserSessionRepository
	s *memStore
}

func (r fakeSessionRepo) Save(_ context.Context, session *models.UserSession) error {
	session.ID = r.s.id()
	r.s.sessions[session.ID] = *session
	return nil
}

func (r fakeSessionRepo) ByToken(_ context.Context, token string) (*models.UserSession, error) {
	for _, session := range r.s.sessions {
		if session.Token == token {
			return &session, nil
		}
	}
	return nil, nil
}

func (r fakeSessionRepo) Extend(_ context.Context, sessionID uint, expiresAt, lastActivity time.Time) error {
	session := r.s.sessions[sessionID]
	session.ExpiresAt = expiresAt
	session.LastActivityAt = lastActivity
	r.s.sessions[sessionID] = session
	return nil
}

func (r fakeSessionRepo) DeleteByToken(_ context.Context, token string) error {
	for id, session := range r.s.sessions {
		if session.Token == token {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r fakeSessionRepo) DeleteByUser(_ context.Context, userID uint) (int64, error) {
	var n int64
	for id, session := range r.s.sessions {
		if session.UserID == userID {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

type fakeResetRepo struct {
	repository.PasswordResetRepository
	s *memStore
}

func (r fakeResetRepo) Save(_ context.Context, reset *models.PasswordReset) error {
	if r.s.failResetSave {
		return errInjected
	}
	reset.ID = r.s.id()
	r.s.resets[reset.ID] = *reset
	return nil
}

func (r fakeResetRepo) ByToken(_ context.Context, token string) (*models.PasswordReset, error) {
	for _, reset := range r.s.resets {
		if reset.Token == token {
			return &reset, nil
		}
	}
	return nil, nil
}

func (r fakeResetRepo) MarkUsed(_ context.Context, id uint, at time.Time) error {
	reset := r.s.resets[id]
	reset.UsedAt = &at
	r.s.resets[id] = reset
	return nil
}

func (r fakeResetRepo) InvalidateForUser(_ context.Context, userID uint, at time.Time) error {
	for id, reset := range r.s.resets {
		if reset.UserID == userID && reset.UsedAt == nil {
			reset.UsedAt = &at
			r.s.resets[id] = reset
		}
	}
	return nil
}

type fakeAttemptRepo struct {
	repository.LoginAttemptRepository
	s *memStore
}

func (r fakeAttemptRepo) Save(_ context.Context, attempt *models.LoginAttempt) error {
	attempt.ID = r.s.id()
	r.s.attempts = append(r.s.attempts, *attempt)
	return nil
}

func (r fakeAttemptRepo) CountSince(_ context.Context, email string, since time.Time) (int64, error) {
	var n int64
	for _, a := range r.s.attempts {
		if a.Email == email && !a.AttemptedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r fakeAttemptRepo) ClearForEmail(_ context.Context, email string) error {
	r.s.attempts = slices.DeleteFunc(r.s.attempts, func(a models.LoginAttempt) bool { return a.Email == email })
	return nil
}

type fakeAuditRepo struct {
	repository.AuditLogRepository
	s *memStore
}

func (r fakeAuditRepo) Save(_ context.Context, entry *models.AuditLog) error {
	entry.ID = r.s.id()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

type fakeSearchRepo struct {
	s *memStore
}

func (r fakeSearchRepo) Save(_ context.Context, entry *models.SearchHistory) error {
	entry.ID = r.s.id()
	r.s.searches = append(r.s.searches, *entry)
	return nil
}

type fakeTemplateRepo struct {
	repository.NewsletterTemplateRepository
	s *memStore
}

func (r fakeTemplateRepo) ByID(_ context.Context, id uint) (*models.NewsletterTemplate, error) {
	t, ok := r.s.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r fakeTemplateRepo) Save(_ context.Context, t *models.NewsletterTemplate) error {
	t.ID = r.s.id()
	r.s.templates[t.ID] = *t
	return nil
}

func (r fakeTemplateRepo) ListByBusiness(_ context.Context, businessID uint) ([]*models.NewsletterTemplate, error) {
	var out []*models.NewsletterTemplate
	for _, id := range slices.Sorted(maps.Keys(r.s.templates)) {
		if t := r.s.templates[id]; t.BusinessID == businessID {
			out = append(out, &t)
		}
	}
	return out, nil
}

type fakeCampaignRepo struct {
	repository.NewsletterCampaignRepository
	s *memStore
}

func (r fakeCampaignRepo) ByID(_ context.Context, id uint) (*models.NewsletterCampaign, error) {
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r fakeCampaignRepo) Save(_ context.Context, c *models.NewsletterCampaign) error {
	c.ID = r.s.id()
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r fakeCampaignRepo) Update(_ context.Context, c *models.NewsletterCampaign) error {
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r fakeCampaignRepo) matches(c models.NewsletterCampaign, f models.NewsletterCampaignFilter) bool {
	switch {
	case f.BusinessID != nil && c.BusinessID != *f.BusinessID:
		return false
	case f.Status != nil && c.Status != *f.Status:
		return false
	case f.SentAfter != nil && (c.SentAt == nil || c.SentAt.Before(*f.SentAfter)):
		return false
	case f.ScheduledBefore != nil && (c.ScheduledAt == nil || c.ScheduledAt.After(*f.ScheduledBefore)):
		return false
	}
	return true
}

func (r fakeCampaignRepo) ByFilter(_ context.Context, f models.NewsletterCampaignFilter, _ string, limit, offset int) ([]*models.NewsletterCampaign, error) {
	var out []*models.NewsletterCampaign
	for _, id := range slices.Sorted(maps.Keys(r.s.campaigns)) {
		if c := r.s.campaigns[id]; r.matches(c, f) {
			out = append(out, &c)
		}
	}
	return page(out, limit, offset), nil
}

func (r fakeCampaignRepo) Count(_ context.Context, f models.NewsletterCampaignFilter) (int64, error) {
	var n int64
	for _, c := range r.s.campaigns {
		if r.matches(c, f) {
			n++
		}
	}
	return n, nil
}
