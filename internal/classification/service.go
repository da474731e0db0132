// Package classification is the write and read path for vehicle
// classifications: it runs the classifier against persisted overrides,
// saves results remotely and falls back to the offline queue when the
// remote store is unavailable.
package classification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"detailinfra/internal/events"
	"detailinfra/internal/pricing"
	"detailinfra/internal/queue"
	"detailinfra/internal/remote"
	"detailinfra/internal/vehicle"
)

const RoleAdmin = "admin"

const (
	msgSaved  = "Saved"
	msgQueued = "Saved locally. Will sync when server available."
)

var (
	ErrAdminOnly  = errors.New("admins only")
	ErrInvalidRow = errors.New("invalid classification row")
)

// Actor is whoever triggers a write. Role comes straight from the caller;
// it is not authenticated here.
type Actor struct {
	Name string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type Deps struct {
	Classifier *vehicle.Classifier
	Remote     remote.Store
	Queue      *queue.Queue
	Catalog    *pricing.Catalog
	Events     events.Publisher
	Logger     *zap.Logger
	Now        func() time.Time
}

type Service struct {
	classifier *vehicle.Classifier
	remote     remote.Store
	queue      *queue.Queue
	catalog    *pricing.Catalog
	events     events.Publisher
	log        *zap.Logger
	now        func() time.Time
}

// New fills in defaults for every missing dependency: the built-in dataset
// and catalog, a disabled remote, an in-memory queue and no events.
func New(d Deps) *Service {
	s := &Service{
		classifier: d.Classifier,
		remote:     d.Remote,
		queue:      d.Queue,
		catalog:    d.Catalog,
		events:     d.Events,
		log:        d.Logger,
		now:        d.Now,
	}
	if s.classifier == nil {
		s.classifier = vehicle.NewClassifier(nil)
	}
	if s.remote == nil {
		s.remote = remote.Disabled{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.queue == nil {
		s.queue = queue.New(queue.NewMemoryStore(), s.remote, queue.WithLogger(s.log))
	}
	if s.catalog == nil {
		s.catalog = pricing.DefaultCatalog()
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Catalog() *pricing.Catalog { return s.catalog }

type ClassifyRequest struct {
	Make     string           `json:"make"`
	Model    string           `json:"model"`
	Year     *int             `json:"year,omitempty"`
	Override vehicle.Category `json:"override,omitempty"`
}

func (r ClassifyRequest) validate() error {
	if strings.TrimSpace(r.Make) == "" || strings.TrimSpace(r.Model) == "" {
		return fmt.Errorf("%w: make and model are required", ErrInvalidRow)
	}
	if r.Override != "" && !r.Override.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRow, r.Override)
	}
	return nil
}

// Classify runs the classifier with the persisted rows for the vehicle.
// Storage failures degrade to the static rules and are only logged.
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (vehicle.Result, error) {
	if err := req.validate(); err != nil {
		return vehicle.Result{}, err
	}
	rows, err := s.queue.View(ctx, remote.Filter{Make: req.Make, Model: req.Model})
	if err != nil {
		s.log.Warn("override rows unavailable; using static rules",
			zap.String("make", req.Make),
			zap.String("model", req.Model),
			zap.Error(err))
		rows = nil
	}
	return s.classifier.Classify(vehicle.Input{
		Make:     req.Make,
		Model:    req.Model,
		Year:     req.Year,
		Override: req.Override,
		Rows:     rows,
	}), nil
}

// SaveRequest classifies a vehicle and persists the outcome. Luxury, when
// set, replaces the inferred flag.
type SaveRequest struct {
	ClassifyRequest
	Luxury *bool  `json:"is_luxury,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

type SaveResult struct {
	Row     vehicle.Row     `json:"row"`
	Queued  bool            `json:"queued"`
	Message string          `json:"message"`
	Result  *vehicle.Result `json:"classification,omitempty"`
}

// Save upserts the classification keyed by make and model. The row covers
// exactly the requested year, or every year when none was given.
func (s *Service) Save(ctx context.Context, actor Actor, req SaveRequest) (SaveResult, error) {
	if !actor.IsAdmin() {
		return SaveResult{}, ErrAdminOnly
	}
	res, err := s.Classify(ctx, req.ClassifyRequest)
	if err != nil {
		return SaveResult{}, err
	}
	if req.Luxury != nil {
		res.Luxury = *req.Luxury
	}
	row := vehicle.Row{
		Make:      vehicle.Capitalize(res.Make),
		Model:     vehicle.Capitalize(res.Model),
		YearStart: req.Year,
		YearEnd:   req.Year,
		Category:  res.Category,
		Luxury:    res.Luxury,
		Notes:     req.Notes,
	}
	out, err := s.persist(ctx, actor, row, s.remote.Upsert)
	if err != nil {
		return SaveResult{}, err
	}
	out.Result = &res
	return out, nil
}

// Add inserts a hand-entered row.
func (s *Service) Add(ctx context.Context, actor Actor, row vehicle.Row) (SaveResult, error) {
	if !actor.IsAdmin() {
		return SaveResult{}, ErrAdminOnly
	}
	row.ID = ""
	row.Make = vehicle.Capitalize(row.Make)
	row.Model = vehicle.Capitalize(row.Model)
	if row.Make == "" || row.Model == "" || row.Category == "" {
		return SaveResult{}, fmt.Errorf("%w: make, model and type are required", ErrInvalidRow)
	}
	if !row.Category.Valid() {
		return SaveResult{}, fmt.Errorf("%w: unknown category %q", ErrInvalidRow, row.Category)
	}
	return s.persist(ctx, actor, row, s.remote.Insert)
}

// persist writes row with write and queues it when that fails.
func (s *Service) persist(ctx context.Context, actor Actor, row vehicle.Row, write func(context.Context, vehicle.Row) (vehicle.Row, error)) (SaveResult, error) {
	saved, err := write(ctx, row)
	if err == nil {
		s.publish(ctx, events.SubjectSaved, events.Classification{Row: saved, Actor: actor.Name, Message: msgSaved, At: s.now().UTC()})
		return SaveResult{Row: saved, Message: msgSaved}, nil
	}
	s.log.Warn("remote write failed; queueing locally",
		zap.String("make", row.Make),
		zap.String("model", row.Model),
		zap.Error(err))

	item, qerr := s.queue.Enqueue(ctx, row)
	if qerr != nil {
		return SaveResult{}, fmt.Errorf("save failed: %w", errors.Join(err, qerr))
	}
	s.publish(ctx, events.SubjectQueued, events.Classification{Row: item.Row, Actor: actor.Name, Message: msgQueued, At: s.now().UTC()})
	return SaveResult{Row: item.Row, Queued: true, Message: msgQueued}, nil
}

// SetLuxury flips the luxury flag of one row. Placeholder ids address rows
// still waiting in the queue.
func (s *Service) SetLuxury(ctx context.Context, actor Actor, id string, luxury bool) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRow)
	}
	patch := remote.Patch{Luxury: &luxury}
	if queue.IsPlaceholder(id) {
		return s.queue.Patch(ctx, id, patch)
	}
	return s.remote.Update(ctx, id, patch)
}

func (s *Service) Sync(ctx context.Context) (queue.DrainResult, error) {
	res, err := s.queue.Drain(ctx)
	if res.Succeeded > 0 {
		s.publish(ctx, events.SubjectDrained, events.Drained{
			Succeeded: res.Succeeded,
			Remaining: res.Remaining,
			Message:   fmt.Sprintf("%d queued classifications synced", res.Succeeded),
			At:        s.now().UTC(),
		})
	}
	return res, err
}

// Drain lets the service stand in for the queue in the sync worker.
func (s *Service) Drain(ctx context.Context) (queue.DrainResult, error) {
	return s.Sync(ctx)
}

func (s *Service) Pending(ctx context.Context) ([]queue.PendingWrite, error) {
	return s.queue.Pending(ctx)
}

func (s *Service) publish(ctx context.Context, subject string, v any) {
	if err := s.events.Publish(ctx, subject, v); err != nil {
		s.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
