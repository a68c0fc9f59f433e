package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/dmitrijs2005/teamflow/internal/dbx"
	"github.com/dmitrijs2005/teamflow/internal/server/models"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/activitylogs"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/entries"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/payrolls"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/projects"
	"github.com/dmitrijs2005/teamflow/internal/server/repositories/users"
	"github.com/shopspring/decimal"
)

// --- entries ---

type fakeEntries struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.TimeEntry

	lockErr   error
	lockCalls []int64

	// afterOpenMiss runs when GetOpenForUpdate finds nothing, before the
	// caller can insert. afterRowRead runs after GetForUpdate loads a row.
	afterOpenMiss func()
	afterRowRead  func()

	// allowDuplicateOpen turns off the one-open-entry index check in Create.
	allowDuplicateOpen bool

	statsOut   *models.UserStats
	statsErr   error
	statsCalls int
	teamOut    []models.TeamStatsRow

	dailyOut   []models.DailyTotal
	dailyFrom  time.Time
	dailyTo    time.Time
	dailyZone  string
	projectOut []models.ProjectTotal
	projectErr error

	sumSeconds int64
	sumCount   int64
	sumFrom    time.Time
	sumTo      time.Time

	listFilter entries.ListFilter
	deleteErr  error
	cutoff     time.Time
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{nextID: 1, rows: make(map[int64]*models.TimeEntry)}
}

func (f *fakeEntries) put(e models.TimeEntry) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == 0 {
		e.ID = f.nextID
		f.nextID++
	}
	f.rows[e.ID] = &e
	return e.ID
}

func (f *fakeEntries) get(id int64) models.TimeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

func (f *fakeEntries) LockUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockCalls = append(f.lockCalls, userID)
	return f.lockErr
}

func (f *fakeEntries) locked() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.lockCalls...)
}

func (f *fakeEntries) openCount(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.rows {
		if e.UserID == userID && e.Status.Open() {
			n++
		}
	}
	return n
}

func (f *fakeEntries) open(userID int64) *models.TimeEntry {
	for _, e := range f.rows {
		if e.UserID == userID && e.Status.Open() {
			c := *e
			return &c
		}
	}
	return nil
}

func (f *fakeEntries) GetOpenForUpdate(ctx context.Context, userID int64) (*models.TimeEntry, error) {
	e, err := f.GetOpen(ctx, userID)
	if err != nil && f.afterOpenMiss != nil {
		f.afterOpenMiss()
	}
	return e, err
}

func (f *fakeEntries) GetOpen(_ context.Context, userID int64) (*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.open(userID); e != nil {
		return e, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeEntries) GetForUpdate(_ context.Context, id, userID int64) (*models.TimeEntry, error) {
	f.mu.Lock()
	e, ok := f.rows[id]
	if !ok || e.UserID != userID {
		f.mu.Unlock()
		return nil, common.ErrorNotFound
	}
	c := *e
	f.mu.Unlock()

	if f.afterRowRead != nil {
		f.afterRowRead()
	}
	return &c, nil
}

func (f *fakeEntries) Create(_ context.Context, e *models.TimeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.allowDuplicateOpen && f.open(e.UserID) != nil {
		return fmt.Errorf("insert entry: %w", common.ErrAlreadyRunning)
	}
	e.ID = f.nextID
	f.nextID++
	c := *e
	f.rows[e.ID] = &c
	return nil
}

func (f *fakeEntries) Update(_ context.Context, e *models.TimeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[e.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *e
	f.rows[e.ID] = &c
	return nil
}

func (f *fakeEntries) List(_ context.Context, filter entries.ListFilter) ([]*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listFilter = filter
	var out []*models.TimeEntry
	for _, e := range f.rows {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeEntries) UserStats(context.Context, int64, time.Time, time.Time) (*models.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.statsOut == nil {
		return &models.UserStats{}, nil
	}
	c := *f.statsOut
	return &c, nil
}

func (f *fakeEntries) TeamStats(context.Context, time.Time, time.Time) ([]models.TeamStatsRow, error) {
	return f.teamOut, nil
}

func (f *fakeEntries) DailyTotals(_ context.Context, _ int64, from, to time.Time, zone string) ([]models.DailyTotal, error) {
	f.dailyFrom, f.dailyTo, f.dailyZone = from, to, zone
	return f.dailyOut, nil
}

func (f *fakeEntries) ProjectTotals(context.Context, int64, time.Time, time.Time) ([]models.ProjectTotal, error) {
	return f.projectOut, f.projectErr
}

func (f *fakeEntries) SumCompleted(_ context.Context, _ int64, from, to time.Time) (int64, int64, error) {
	f.sumFrom, f.sumTo = from, to
	return f.sumSeconds, f.sumCount, nil
}

func (f *fakeEntries) DeleteCompletedBefore(_ context.Context, cutoff time.Time) ([]*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	var out []*models.TimeEntry
	for id, e := range f.rows {
		if e.Status == models.StatusCompleted && e.StartTime.Before(cutoff) {
			out = append(out, e)
			delete(f.rows, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- projects ---

type fakeProjects struct {
	active map[int64]bool
}

func (f *fakeProjects) GetActive(_ context.Context, id int64) (*models.Project, error) {
	if !f.active[id] {
		return nil, common.ErrorNotFound
	}
	return &models.Project{ID: id, Name: fmt.Sprintf("p%d", id), Status: models.ProjectActive}, nil
}

func (f *fakeProjects) ListActive(context.Context) ([]*models.Project, error) {
	out := []*models.Project{}
	for id := range f.active {
		out = append(out, &models.Project{ID: id, Status: models.ProjectActive})
	}
	return out, nil
}

// --- users ---

type fakeUsers struct {
	rates  map[int64]decimal.Decimal
	list   []*models.User
	setErr error
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	if _, ok := f.rates[id]; !ok {
		return nil, common.ErrorNotFound
	}
	return &models.User{ID: id, HourlyRate: f.rates[id]}, nil
}

func (f *fakeUsers) GetHourlyRate(_ context.Context, id int64) (decimal.Decimal, error) {
	return f.rates[id], nil
}

func (f *fakeUsers) SetHourlyRate(_ context.Context, id int64, rate decimal.Decimal) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.rates[id] = rate
	return nil
}

func (f *fakeUsers) ListByRoles(context.Context, ...string) ([]*models.User, error) {
	return f.list, nil
}

// --- payrolls ---

type fakePayrolls struct {
	nextID int64
	rows   map[int64]*models.PayrollRecord

	summaryFrom, summaryTo sql.NullTime
	listFilter             payrolls.ListFilter
}

func newFakePayrolls() *fakePayrolls {
	return &fakePayrolls{nextID: 1, rows: make(map[int64]*models.PayrollRecord)}
}

func (f *fakePayrolls) find(userID int64, start, end time.Time) *models.PayrollRecord {
	for _, r := range f.rows {
		if r.UserID == userID && r.PeriodStart.Equal(start) && r.PeriodEnd.Equal(end) {
			return r
		}
	}
	return nil
}

func (f *fakePayrolls) Upsert(_ context.Context, rec *models.PayrollRecord) (bool, error) {
	existing := f.find(rec.UserID, rec.PeriodStart, rec.PeriodEnd)
	switch {
	case existing == nil:
		rec.ID = f.nextID
		f.nextID++
	case existing.Status == models.PayrollProcessed:
		*rec = *existing
		return false, nil
	default:
		rec.ID = existing.ID
	}
	rec.Status = models.PayrollPending
	c := *rec
	f.rows[rec.ID] = &c
	return true, nil
}

func (f *fakePayrolls) GetByPeriod(_ context.Context, userID int64, start, end time.Time) (*models.PayrollRecord, error) {
	if r := f.find(userID, start, end); r != nil {
		c := *r
		return &c, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakePayrolls) GetForUpdate(_ context.Context, id int64) (*models.PayrollRecord, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakePayrolls) MarkProcessed(_ context.Context, id int64, at time.Time, by int64) error {
	r, ok := f.rows[id]
	if !ok || r.Status != models.PayrollPending {
		return common.ErrorNotFound
	}
	r.Status = models.PayrollProcessed
	r.ProcessedAt = sql.NullTime{Time: at, Valid: true}
	r.ProcessedBy = sql.NullInt64{Int64: by, Valid: true}
	return nil
}

func (f *fakePayrolls) List(_ context.Context, filter payrolls.ListFilter) ([]*models.PayrollRecord, error) {
	f.listFilter = filter
	out := []*models.PayrollRecord{}
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakePayrolls) Summary(_ context.Context, from, to sql.NullTime) (*models.PayrollSummary, error) {
	f.summaryFrom, f.summaryTo = from, to
	return &models.PayrollSummary{TotalRecords: int64(len(f.rows))}, nil
}

// --- activity logs ---

type fakeActivityLogs struct {
	logs []*models.ActivityLog
}

func (f *fakeActivityLogs) Append(_ context.Context, l *models.ActivityLog) error {
	f.logs = append(f.logs, l)
	return nil
}

// --- manager ---

type fakeRepoManager struct {
	entries  *fakeEntries
	projects *fakeProjects
	users    *fakeUsers
	payrolls *fakePayrolls
	activity *fakeActivityLogs
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		entries:  newFakeEntries(),
		projects: &fakeProjects{active: map[int64]bool{}},
		users:    &fakeUsers{rates: map[int64]decimal.Decimal{}},
		payrolls: newFakePayrolls(),
		activity: &fakeActivityLogs{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepoManager) Entries(dbx.DBTX) entries.Repository           { return m.entries }
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository         { return m.projects }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository               { return m.users }
func (m *fakeRepoManager) Payrolls(dbx.DBTX) payrolls.Repository         { return m.payrolls }
func (m *fakeRepoManager) ActivityLogs(dbx.DBTX) activitylogs.Repository { return m.activity }

// --- invalidator ---

type fakeInvalidator struct {
	mu    sync.Mutex
	users []int64
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID int64) {
	f.mu.Lock()
	f.users = append(f.users, userID)
	f.mu.Unlock()
}

func (f *fakeInvalidator) calls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.users...)
}
