package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
)

// fakeWorkOrders is an in-memory WorkOrderRepository (and SignatureRepository)
// with the same atomicity semantics as the postgres implementation: a failed
// save leaves the order, history and signatures untouched.
type fakeWorkOrders struct {
	mu         sync.Mutex
	orders     map[int64]domain.WorkOrder
	history    map[int64][]domain.StageHistoryEntry
	signatures map[int64]domain.ComplianceSignature
	nextID     int64
	clock      time.Time

	failSave     error
	failListOpen error
}

func newFakeWorkOrders() *fakeWorkOrders {
	return &fakeWorkOrders{
		orders:     make(map[int64]domain.WorkOrder),
		history:    make(map[int64][]domain.StageHistoryEntry),
		signatures: make(map[int64]domain.ComplianceSignature),
		clock:      time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeWorkOrders) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// seed inserts a work order directly, bypassing the lifecycle.
func (f *fakeWorkOrders) seed(wo domain.WorkOrder) domain.WorkOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if wo.ID == 0 {
		f.nextID++
		wo.ID = f.nextID
	} else if wo.ID > f.nextID {
		f.nextID = wo.ID
	}
	if wo.CreatedAt.IsZero() {
		wo.CreatedAt = f.tick()
	}
	if wo.UpdatedAt.IsZero() {
		wo.UpdatedAt = wo.CreatedAt
	}
	if wo.Estado == "" {
		wo.Estado = domain.EstadoFor(wo.Etapa)
	}
	f.orders[wo.ID] = wo
	return wo
}

func (f *fakeWorkOrders) Create(ctx context.Context, wo *domain.WorkOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	wo.ID = f.nextID
	wo.CreatedAt = f.tick()
	wo.UpdatedAt = wo.CreatedAt
	f.orders[wo.ID] = *wo
	return nil
}

func (f *fakeWorkOrders) GetByID(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wo, ok := f.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := wo
	return &copied, nil
}

func (f *fakeWorkOrders) ListWithFilter(ctx context.Context, filter repository.WorkOrderFilter) ([]domain.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.WorkOrder
	for _, wo := range f.orders {
		result = append(result, wo)
	}
	return result, nil
}

func (f *fakeWorkOrders) ListOpen(ctx context.Context) ([]domain.WorkOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failListOpen != nil {
		return nil, f.failListOpen
	}
	var result []domain.WorkOrder
	for _, wo := range f.orders {
		if wo.IsOpen() {
			result = append(result, wo)
		}
	}
	return result, nil
}

func (f *fakeWorkOrders) SaveTransition(ctx context.Context, wo *domain.WorkOrder, entry *domain.StageHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	return f.apply(wo, entry)
}

func (f *fakeWorkOrders) SaveClosure(ctx context.Context, wo *domain.WorkOrder, entry *domain.StageHistoryEntry, sig *domain.ComplianceSignature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	if _, exists := f.signatures[sig.WorkOrderID]; exists {
		return repository.ErrDuplicateSignature
	}
	if err := f.apply(wo, entry); err != nil {
		return err
	}
	sig.ID = int64(len(f.signatures) + 1)
	sig.CreatedAt = f.clock
	f.signatures[sig.WorkOrderID] = *sig
	return nil
}

func (f *fakeWorkOrders) apply(wo *domain.WorkOrder, entry *domain.StageHistoryEntry) error {
	current, ok := f.orders[wo.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if current.Etapa != entry.EtapaAnterior {
		return repository.ErrStaleStage
	}
	wo.UpdatedAt = f.tick()
	f.orders[wo.ID] = *wo
	entry.ID = int64(len(f.history[wo.ID]) + 1)
	entry.CreatedAt = wo.UpdatedAt
	f.history[wo.ID] = append(f.history[wo.ID], *entry)
	return nil
}

func (f *fakeWorkOrders) ListHistory(ctx context.Context, workOrderID int64) ([]domain.StageHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.StageHistoryEntry{}, f.history[workOrderID]...), nil
}

func (f *fakeWorkOrders) GetByWorkOrder(ctx context.Context, workOrderID int64) (*domain.ComplianceSignature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sig, ok := f.signatures[workOrderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := sig
	return &copied, nil
}

type fakeNotes struct {
	mu     sync.Mutex
	notes  map[int64][]domain.TraceableNote
	clock  time.Time
	nextID int64
}

func newFakeNotes() *fakeNotes {
	return &fakeNotes{
		notes: make(map[int64][]domain.TraceableNote),
		clock: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeNotes) Create(ctx context.Context, note *domain.TraceableNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	note.ID = f.nextID
	note.CreatedAt = f.clock
	f.notes[note.WorkOrderID] = append(f.notes[note.WorkOrderID], *note)
	return nil
}

func (f *fakeNotes) ListByWorkOrder(ctx context.Context, workOrderID int64) ([]domain.TraceableNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TraceableNote{}, f.notes[workOrderID]...), nil
}

type fakeTechnicians struct {
	mu    sync.Mutex
	techs map[string]domain.Technician

	failList error
}

func newFakeTechnicians(techs ...domain.Technician) *fakeTechnicians {
	f := &fakeTechnicians{techs: make(map[string]domain.Technician)}
	for _, tech := range techs {
		f.techs[tech.ID] = tech
	}
	return f
}

func (f *fakeTechnicians) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tech, ok := f.techs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := tech
	return &copied, nil
}

func (f *fakeTechnicians) GetByEmail(ctx context.Context, email string) (*domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tech := range f.techs {
		if tech.Email == email {
			copied := tech
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTechnicians) ListActive(ctx context.Context) ([]domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var result []domain.Technician
	for _, tech := range f.techs {
		if tech.Activo {
			result = append(result, tech)
		}
	}
	return result, nil
}

// fakeNotifier records deliveries and fails for configured recipients.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
}

type sentMessage struct {
	Recipient string
	Subject   string
	Body      string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{failFor: make(map[string]error)}
}

func (f *fakeNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[recipient]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

func (f *fakeNotifier) sentTo(recipient string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []sentMessage
	for _, msg := range f.sent {
		if msg.Recipient == recipient {
			result = append(result, msg)
		}
	}
	return result
}
