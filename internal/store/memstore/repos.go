package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/entity"
	applicationRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/application/repository"
	paymentRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/repository"
	tuitionRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/tuition/repository"
	userRepo "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/user/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func copyAccount(a entity.Account) entity.Account {
	if a.Student != nil {
		p := *a.Student
		a.Student = &p
	}
	if a.Tutor != nil {
		p := *a.Tutor
		a.Tutor = &p
	}
	if a.Admin != nil {
		p := *a.Admin
		a.Admin = &p
	}
	return a
}

// accounts

type accounts struct{ s *Store }

func (r accounts) Create(ctx context.Context, account *entity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("accounts.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.st.accounts {
		if existing.Status == entity.AccountDeleted {
			continue
		}
		if existing.Email == account.Email {
			return gorm.ErrDuplicatedKey
		}
		if account.ExternalID != nil && existing.ExternalID != nil && *existing.ExternalID == *account.ExternalID {
			return gorm.ErrDuplicatedKey
		}
	}
	newID(&account.ID)
	r.s.stamp(&account.CreatedAt)
	account.UpdatedAt = account.CreatedAt
	profile := account.Profile()
	if profile == nil {
		profile = entity.EmptyProfile(account.Role)
	}
	account.SetProfile(profile)
	r.s.st.accounts[account.ID] = copyAccount(*account)
	return nil
}

func (r accounts) find(match func(entity.Account) bool) (*entity.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("accounts.Find"); err != nil {
		return nil, err
	}
	for _, a := range r.s.st.accounts {
		if match(a) {
			c := copyAccount(a)
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r accounts) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return r.find(func(a entity.Account) bool { return a.ID == id })
}

func (r accounts) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.find(func(a entity.Account) bool {
		return a.Email == email && a.Status != entity.AccountDeleted
	})
}

func (r accounts) FindByExternalID(ctx context.Context, externalID string) (*entity.Account, error) {
	return r.find(func(a entity.Account) bool {
		return a.ExternalID != nil && *a.ExternalID == externalID && a.Status != entity.AccountDeleted
	})
}

func (r accounts) FindAll(ctx context.Context, filter userRepo.Filter) ([]entity.Account, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []entity.Account
	for _, a := range r.s.st.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		if filter.Status != "" {
			if a.Status != filter.Status {
				continue
			}
		} else if !filter.IncludeDeleted && a.Status == entity.AccountDeleted {
			continue
		}
		if filter.Search != "" && !containsFold(a.Name, filter.Search) && !containsFold(a.Email, filter.Search) {
			continue
		}
		if filter.Subject != "" && (a.Tutor == nil || !containsFold(joinSlice(a.Tutor.Subjects), filter.Subject)) {
			continue
		}
		if filter.Location != "" && (a.Tutor == nil || !containsFold(a.Tutor.Location, filter.Location)) {
			continue
		}
		out = append(out, copyAccount(a))
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch filter.SortBy {
		case "top-rated":
			if out[i].Tutor != nil && out[j].Tutor != nil {
				return out[i].Tutor.RatingAverage > out[j].Tutor.RatingAverage
			}
		case "experience":
			if out[i].Tutor != nil && out[j].Tutor != nil {
				return out[i].Tutor.ExperienceYears > out[j].Tutor.ExperienceYears
			}
		case "oldest":
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Offset, filter.Limit), int64(len(out)), nil
}

func (r accounts) Update(ctx context.Context, account *entity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("accounts.Update"); err != nil {
		return err
	}
	current, ok := r.s.st.accounts[account.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	current.Name = account.Name
	current.Phone = account.Phone
	current.PhotoURL = account.PhotoURL
	current.UpdatedAt = r.s.now()
	if profile := account.Profile(); profile != nil {
		current.SetProfile(profile)
	}
	r.s.st.accounts[account.ID] = copyAccount(current)
	return nil
}

func (r accounts) mutate(id uuid.UUID, fn func(a *entity.Account)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.accounts[id]
	if !ok || a.Status == entity.AccountDeleted {
		return gorm.ErrRecordNotFound
	}
	fn(&a)
	r.s.st.accounts[id] = a
	return nil
}

func (r accounts) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.mutate(id, func(a *entity.Account) {
		a.Role = role
		if a.Profile() == nil {
			a.SetProfile(entity.EmptyProfile(role))
		}
	})
}

func (r accounts) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.mutate(id, func(a *entity.Account) { a.Status = status })
}

func (r accounts) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(id, func(a *entity.Account) {
		a.Status = entity.AccountDeleted
		a.DeletedAt = &at
	})
}

func (r accounts) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.st.accounts[id]; ok {
		a.LastLoginAt = &at
		r.s.st.accounts[id] = a
	}
	return nil
}

func (r accounts) ApplyRating(ctx context.Context, tutorID uuid.UUID, rating int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.accounts[tutorID]
	if !ok || a.Tutor == nil {
		return gorm.ErrRecordNotFound
	}
	t := *a.Tutor
	t.RatingAverage = (t.RatingAverage*float64(t.RatingCount) + float64(rating)) / float64(t.RatingCount+1)
	t.RatingCount++
	a.Tutor = &t
	r.s.st.accounts[tutorID] = a
	return nil
}

func (r accounts) CountByRole(ctx context.Context) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int64{}
	for _, a := range r.s.st.accounts {
		if a.Status != entity.AccountDeleted {
			counts[a.Role]++
		}
	}
	return counts, nil
}

func (r accounts) SignupBuckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	buckets := map[time.Time]*entity.TimeBucket{}
	for _, a := range r.s.st.accounts {
		if a.CreatedAt.Before(since) || a.Status == entity.AccountDeleted {
			continue
		}
		addBucket(buckets, truncate(a.CreatedAt, unit), decimal.Zero)
	}
	return sortBuckets(buckets), nil
}

func addBucket(m map[time.Time]*entity.TimeBucket, start time.Time, amount decimal.Decimal) {
	b, ok := m[start]
	if !ok {
		b = &entity.TimeBucket{Start: start}
		m[start] = b
	}
	b.Count++
	b.Total = b.Total.Add(amount)
}

func joinSlice(list []string) string {
	out := ""
	for _, s := range list {
		out += s + ","
	}
	return out
}

// tuitions

type tuitions struct{ s *Store }

func (r tuitions) Create(ctx context.Context, post *entity.TuitionPost) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("tuitions.Create"); err != nil {
		return err
	}
	newID(&post.ID)
	r.s.stamp(&post.CreatedAt)
	post.UpdatedAt = post.CreatedAt
	r.s.st.tuitions[post.ID] = *post
	return nil
}

func (r tuitions) FindByID(ctx context.Context, id uuid.UUID) (*entity.TuitionPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("tuitions.FindByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.st.tuitions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r tuitions) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.TuitionPost, error) {
	return r.FindByID(ctx, id)
}

func (r tuitions) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.TuitionPost, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	posts := []entity.TuitionPost{}
	for _, id := range ids {
		if p, ok := r.s.st.tuitions[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (r tuitions) FindAll(ctx context.Context, filter tuitionRepo.Filter) ([]entity.TuitionPost, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("tuitions.FindAll"); err != nil {
		return nil, 0, err
	}

	var out []entity.TuitionPost
	for _, p := range r.s.st.tuitions {
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, p.Status) {
			continue
		}
		if filter.StudentID != nil && p.StudentID != *filter.StudentID {
			continue
		}
		if filter.Search != "" && !containsFold(p.Title, filter.Search) &&
			!containsFold(p.Subject, filter.Search) && !containsFold(p.Description, filter.Search) {
			continue
		}
		if filter.Location != "" && !containsFold(p.City, filter.Location) &&
			!containsFold(p.Area, filter.Location) && p.LocationMode != filter.Location {
			continue
		}
		if filter.Subject != "" && !containsFold(p.Subject, filter.Subject) {
			continue
		}
		if filter.ClassLevel != "" && p.ClassLevel != filter.ClassLevel {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch filter.SortBy {
		case "budget-low":
			if !a.BudgetMin.Equal(b.BudgetMin) {
				return a.BudgetMin.LessThan(b.BudgetMin)
			}
		case "budget-high":
			if !a.BudgetMax.Equal(b.BudgetMax) {
				return a.BudgetMax.GreaterThan(b.BudgetMax)
			}
		case "oldest":
			return a.CreatedAt.Before(b.CreatedAt)
		case "top-rated":
			if a.Views != b.Views {
				return a.Views > b.Views
			}
			if a.Saves != b.Saves {
				return a.Saves > b.Saves
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return page(out, filter.Offset, filter.Limit), int64(len(out)), nil
}

func (r tuitions) UpdateDetails(ctx context.Context, post *entity.TuitionPost) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.st.tuitions[post.ID]
	if !ok || !current.Editable() {
		return 0, nil
	}
	updated := *post
	updated.StudentID = current.StudentID
	updated.StudentName = current.StudentName
	updated.StudentEmail = current.StudentEmail
	updated.Status = current.Status
	updated.RejectionReason = current.RejectionReason
	updated.AssignedTutorID = current.AssignedTutorID
	updated.AssignedAt = current.AssignedAt
	updated.Applicants = current.Applicants
	updated.Views = current.Views
	updated.Saves = current.Saves
	updated.CreatedAt = current.CreatedAt
	updated.DeletedAt = current.DeletedAt
	r.s.st.tuitions[post.ID] = updated
	return 1, nil
}

func (r tuitions) TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string, changes map[string]any) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("tuitions.TransitionStatus"); err != nil {
		return 0, err
	}
	p, ok := r.s.st.tuitions[id]
	if !ok || !contains(from, p.Status) {
		return 0, nil
	}
	p.Status = to
	p.UpdatedAt = r.s.now()
	for k, v := range changes {
		switch k {
		case "assigned_tutor_id":
			id := v.(uuid.UUID)
			p.AssignedTutorID = &id
		case "assigned_at":
			at := v.(time.Time)
			p.AssignedAt = &at
		case "rejection_reason":
			if v == nil {
				p.RejectionReason = nil
			} else {
				reason := v.(string)
				p.RejectionReason = &reason
			}
		case "deleted_at":
			at := v.(time.Time)
			p.DeletedAt = &at
		}
	}
	r.s.st.tuitions[id] = p
	return 1, nil
}

func (r tuitions) AdjustApplicants(ctx context.Context, id uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.tuitions[id]
	if !ok || p.Applicants+delta < 0 {
		return gorm.ErrRecordNotFound
	}
	p.Applicants += delta
	r.s.st.tuitions[id] = p
	return nil
}

func (r tuitions) IncrementViews(ctx context.Context, id uuid.UUID, n int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.st.tuitions[id]; ok {
		p.Views += n
		r.s.st.tuitions[id] = p
	}
	return nil
}

func (r tuitions) IncrementSaves(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.st.tuitions[id]; ok {
		p.Saves++
		r.s.st.tuitions[id] = p
	}
	return nil
}

func (r tuitions) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.tuitions, id)
	for appID, a := range r.s.st.applications {
		if a.TuitionPostID == id {
			delete(r.s.st.applications, appID)
		}
	}
	return nil
}

func (r tuitions) CountByStatus(ctx context.Context, studentID *uuid.UUID) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int64{}
	for _, p := range r.s.st.tuitions {
		if studentID == nil || p.StudentID == *studentID {
			counts[p.Status]++
		}
	}
	return counts, nil
}

func (r tuitions) CreatedBuckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	buckets := map[time.Time]*entity.TimeBucket{}
	for _, p := range r.s.st.tuitions {
		if p.CreatedAt.Before(since) || p.Status == entity.TuitionDeleted {
			continue
		}
		addBucket(buckets, truncate(p.CreatedAt, unit), decimal.Zero)
	}
	return sortBuckets(buckets), nil
}

// applications

type applications struct{ s *Store }

func (r applications) Create(ctx context.Context, app *entity.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("applications.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.st.applications {
		if existing.TuitionPostID == app.TuitionPostID && existing.TutorID == app.TutorID {
			return gorm.ErrDuplicatedKey
		}
	}
	newID(&app.ID)
	r.s.stamp(&app.AppliedAt)
	app.UpdatedAt = app.AppliedAt
	stored := *app
	stored.TuitionPost = nil
	r.s.st.applications[app.ID] = stored
	return nil
}

func (r applications) FindByID(ctx context.Context, id uuid.UUID) (*entity.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.applications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r applications) FindByPostAndTutor(ctx context.Context, postID, tutorID uuid.UUID) (*entity.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.st.applications {
		if a.TuitionPostID == postID && a.TutorID == tutorID {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r applications) FindAll(ctx context.Context, filter applicationRepo.Filter) ([]entity.Application, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Application
	for _, a := range r.s.st.applications {
		if filter.TuitionPostID != nil && a.TuitionPostID != *filter.TuitionPostID {
			continue
		}
		if filter.TutorID != nil && a.TutorID != *filter.TutorID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if p, ok := r.s.st.tuitions[a.TuitionPostID]; ok {
			a.TuitionPost = &p
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return page(out, filter.Offset, filter.Limit), int64(len(out)), nil
}

func (r applications) CountByPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, a := range r.s.st.applications {
		if a.TuitionPostID == postID {
			n++
		}
	}
	return n, nil
}

func (r applications) UpdateDetails(ctx context.Context, app *entity.Application) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.st.applications[app.ID]
	if !ok || current.Status != entity.ApplicationPending {
		return 0, nil
	}
	current.Qualifications = app.Qualifications
	current.Experience = app.Experience
	current.ExpectedSalary = app.ExpectedSalary
	current.CoverLetter = app.CoverLetter
	current.UpdatedAt = r.s.now()
	r.s.st.applications[app.ID] = current
	return 1, nil
}

func (r applications) TransitionStatus(ctx context.Context, id uuid.UUID, to string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("applications.TransitionStatus"); err != nil {
		return 0, err
	}
	a, ok := r.s.st.applications[id]
	if !ok || a.Status != entity.ApplicationPending {
		return 0, nil
	}
	a.Status = to
	a.DecidedAt = &at
	a.UpdatedAt = at
	r.s.st.applications[id] = a
	return 1, nil
}

func (r applications) RejectPendingSiblings(ctx context.Context, postID, keepID uuid.UUID, at time.Time) ([]entity.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rejected := []entity.Application{}
	for id, a := range r.s.st.applications {
		if a.TuitionPostID != postID || id == keepID || a.Status != entity.ApplicationPending {
			continue
		}
		a.Status = entity.ApplicationRejected
		a.DecidedAt = &at
		a.UpdatedAt = at
		r.s.st.applications[id] = a
		rejected = append(rejected, a)
	}
	return rejected, nil
}

func (r applications) DeleteIfPending(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.st.applications[id]
	if !ok || a.Status != entity.ApplicationPending {
		return 0, nil
	}
	delete(r.s.st.applications, id)
	return 1, nil
}

func (r applications) CountByStatus(ctx context.Context, tutorID *uuid.UUID, postOwnerID *uuid.UUID) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]int64{}
	for _, a := range r.s.st.applications {
		if tutorID != nil && a.TutorID != *tutorID {
			continue
		}
		if postOwnerID != nil {
			p, ok := r.s.st.tuitions[a.TuitionPostID]
			if !ok || p.StudentID != *postOwnerID {
				continue
			}
		}
		counts[a.Status]++
	}
	return counts, nil
}

// payments

type payments struct{ s *Store }

func (r payments) Create(ctx context.Context, record *entity.PaymentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("payments.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.st.payments {
		if existing.ApplicationID == record.ApplicationID || existing.TransactionRef == record.TransactionRef {
			return gorm.ErrDuplicatedKey
		}
	}
	newID(&record.ID)
	r.s.stamp(&record.CreatedAt)
	r.s.st.payments[record.ID] = *record
	return nil
}

func (r payments) findOne(match func(entity.PaymentRecord) bool) (*entity.PaymentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.st.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r payments) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*entity.PaymentRecord, error) {
	return r.findOne(func(p entity.PaymentRecord) bool { return p.ApplicationID == applicationID })
}

func (r payments) FindByTransactionRef(ctx context.Context, ref string) (*entity.PaymentRecord, error) {
	return r.findOne(func(p entity.PaymentRecord) bool { return p.TransactionRef == ref })
}

func (r payments) scoped(filter paymentRepo.Filter) []entity.PaymentRecord {
	var out []entity.PaymentRecord
	for _, p := range r.s.st.payments {
		if filter.StudentID != nil && p.StudentID != *filter.StudentID {
			continue
		}
		if filter.TutorID != nil && p.TutorID != *filter.TutorID {
			continue
		}
		if filter.Since != nil && p.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r payments) FindAll(ctx context.Context, filter paymentRepo.Filter) ([]entity.PaymentRecord, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.scoped(filter)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Offset, filter.Limit), int64(len(out)), nil
}

func (r payments) Summarize(ctx context.Context, filter paymentRepo.Filter) (paymentRepo.Summary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	summary := paymentRepo.Summary{Total: decimal.Zero}
	for _, p := range r.scoped(filter) {
		summary.Count++
		summary.Total = summary.Total.Add(p.Amount)
	}
	return summary, nil
}

func (r payments) Buckets(ctx context.Context, since time.Time, unit string) ([]entity.TimeBucket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	buckets := map[time.Time]*entity.TimeBucket{}
	for _, p := range r.scoped(paymentRepo.Filter{Since: &since}) {
		addBucket(buckets, truncate(p.CreatedAt, unit), p.Amount)
	}
	return sortBuckets(buckets), nil
}

// notifications

type notifications struct{ s *Store }

func (r notifications) Create(ctx context.Context, n *entity.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.takeErr("notifications.Create"); err != nil {
		return err
	}
	newID(&n.ID)
	r.s.stamp(&n.CreatedAt)
	r.s.st.notifications[n.ID] = *n
	return nil
}

func (r notifications) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Notification
	for _, n := range r.s.st.notifications {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, offset, limit), nil
}

func (r notifications) MarkAsRead(ctx context.Context, id, accountID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notifications[id]
	if !ok || n.AccountID != accountID {
		return 0, nil
	}
	n.IsRead = true
	r.s.st.notifications[id] = n
	return 1, nil
}

func (r notifications) MarkAllAsRead(ctx context.Context, accountID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, n := range r.s.st.notifications {
		if n.AccountID == accountID {
			n.IsRead = true
			r.s.st.notifications[id] = n
		}
	}
	return nil
}

func (r notifications) CountUnread(ctx context.Context, accountID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, item := range r.s.st.notifications {
		if item.AccountID == accountID && !item.IsRead {
			n++
		}
	}
	return n, nil
}
