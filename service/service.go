package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"civicreport/models"

	"github.com/apex/log"
)

// PhotoNormalizer rewrites an uploaded photo before it is stored.
type PhotoNormalizer interface {
	Normalize(data []byte) ([]byte, error)
}

// EventSink is notified after a report is created or changes status.
type EventSink interface {
	HandleReportEvent(ctx context.Context, event models.ReportEvent) error
}

// Service owns the in-memory report and task collections.
type Service struct {
	mu      sync.RWMutex
	reports []*models.Report
	byID    map[int64]*models.Report
	tasks   map[int64]*models.Task
	seqs    map[int64]int64
	lastID  int64

	maxPhotoBytes int64
	normalizer    PhotoNormalizer
	sinks         []EventSink
	now           func() time.Time
}

// NewService creates an empty report service. A nil normalizer stores
// photos as uploaded.
func NewService(maxPhotoBytes int64, normalizer PhotoNormalizer, sinks ...EventSink) *Service {
	return &Service{
		byID:          make(map[int64]*models.Report),
		tasks:         make(map[int64]*models.Task),
		seqs:          make(map[int64]int64),
		maxPhotoBytes: maxPhotoBytes,
		normalizer:    normalizer,
		sinks:         sinks,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// AddSink registers another event sink.
func (s *Service) AddSink(sink EventSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// MaxPhotoBytes is the largest photo Submit accepts.
func (s *Service) MaxPhotoBytes() int64 {
	return s.maxPhotoBytes
}

// Submit stores a new report with status Submitted and its task.
func (s *Service) Submit(ctx context.Context, in models.NewReport) (*models.Report, error) {
	if err := validateNewReport(in); err != nil {
		return nil, err
	}
	if s.maxPhotoBytes > 0 && int64(len(in.Photo)) > s.maxPhotoBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(in.Photo), s.maxPhotoBytes)
	}

	photo := in.Photo
	if len(photo) == 0 {
		photo = nil
	} else if s.normalizer != nil {
		normalized, err := s.normalizer.Normalize(photo)
		switch {
		case err != nil:
			log.Warnf("Keeping original photo, normalization failed: %v", err)
		case s.maxPhotoBytes > 0 && int64(len(normalized)) > s.maxPhotoBytes:
			log.Warnf("Keeping original photo, normalized size %d exceeds limit %d", len(normalized), s.maxPhotoBytes)
		default:
			photo = normalized
		}
	}

	department := AssignDepartment(in.Category, in.Location)

	s.mu.Lock()
	now := s.now()
	s.lastID++
	report := &models.Report{
		ID:                 s.lastID,
		Title:              in.Title,
		Category:           in.Category,
		Priority:           in.Priority,
		Location:           in.Location,
		Description:        in.Description,
		Photo:              photo,
		Status:             models.StatusSubmitted,
		AssignedDepartment: department,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.reports = append(s.reports, report)
	s.byID[report.ID] = report
	s.tasks[report.ID] = &models.Task{
		ReportID:    report.ID,
		AssignedTo:  department,
		Status:      report.Status,
		LastUpdated: now,
	}
	created := copyReport(report)
	event := s.newEvent(models.EventReportCreated, created)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"id":         created.ID,
		"department": created.AssignedDepartment,
		"photo_size": len(created.Photo),
	}).Info("Report submitted")

	s.notify(ctx, event)
	return created, nil
}

// List returns the reports matching every non-empty filter field, ordered by id.
func (s *Service) List(filter models.ReportFilter) []*models.Report {
	filter = trimFilter(filter)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if matches(r, filter) {
			out = append(out, copyReport(r))
		}
	}
	return out
}

// Get returns the report with the given id.
func (s *Service) Get(id int64) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	return copyReport(r), nil
}

// UpdateStatus moves a report to a new status and syncs its task.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*models.Report, error) {
	newStatus, ok := models.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	now := s.now()
	if now.Before(r.CreatedAt) {
		now = r.CreatedAt
	}
	previous := r.Status
	r.Status = newStatus
	r.UpdatedAt = now
	if task, ok := s.tasks[id]; ok {
		task.Status = newStatus
		task.LastUpdated = now
	}
	updated := copyReport(r)
	event := s.newEvent(models.EventReportStatusUpdated, updated)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"id":   id,
		"from": previous,
		"to":   newStatus,
	}).Info("Report status updated")

	s.notify(ctx, event)
	return updated, nil
}

// GetTask returns the task projection of a report.
func (s *Service) GetTask(id int64) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	t := *task
	return &t, nil
}

// ListDepartments returns every assignable department name.
func (s *Service) ListDepartments() []string {
	return Departments()
}

// CountByStatus returns the number of reports per status, zeros included.
func (s *Service) CountByStatus() []models.StatusCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Status]int, len(models.Statuses))
	for _, r := range s.reports {
		counts[r.Status]++
	}
	out := make([]models.StatusCount, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		out = append(out, models.StatusCount{Status: status, Count: counts[status]})
	}
	return out
}

// newEvent stamps the next per-report sequence. Callers hold s.mu.
func (s *Service) newEvent(eventType models.EventType, r *models.Report) models.ReportEvent {
	s.seqs[r.ID]++
	event := models.NewReportEvent(eventType, r)
	event.Sequence = s.seqs[r.ID]
	return event
}

// notify runs outside the lock, so sinks may see events of one report out
// of order; Sequence tells them which is newest.
func (s *Service) notify(ctx context.Context, event models.ReportEvent) {
	s.mu.RLock()
	sinks := make([]EventSink, len(s.sinks))
	copy(sinks, s.sinks)
	s.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.HandleReportEvent(ctx, event); err != nil {
			log.Errorf("Failed to deliver %s event for report %d: %v", event.Type, event.Report.ID, err)
		}
	}
}

func validateNewReport(in models.NewReport) error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"category", in.Category},
		{"priority", in.Priority},
		{"location", in.Location},
		{"description", in.Description},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func matches(r *models.Report, f models.ReportFilter) bool {
	if f.Status != "" && !strings.EqualFold(string(r.Status), f.Status) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
		return false
	}
	if f.Priority != "" && !strings.EqualFold(r.Priority, f.Priority) {
		return false
	}
	if f.Department != "" && !strings.EqualFold(r.AssignedDepartment, f.Department) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(r.Location), strings.ToLower(f.Location)) {
		return false
	}
	return true
}

func trimFilter(f models.ReportFilter) models.ReportFilter {
	return models.ReportFilter{
		Status:     strings.TrimSpace(f.Status),
		Category:   strings.TrimSpace(f.Category),
		Priority:   strings.TrimSpace(f.Priority),
		Location:   strings.TrimSpace(f.Location),
		Department: strings.TrimSpace(f.Department),
	}
}

func copyReport(r *models.Report) *models.Report {
	c := *r
	if r.Photo != nil {
		c.Photo = append([]byte(nil), r.Photo...)
	}
	return &c
}
