// Package workflow drives patients through the clinic. Each operation moves
// one patient along the state graph and fans work out to the role queues.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/care"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/notification"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/patient"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/pharmacy"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/task"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/locker"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
	"github.com/longevaiapp/EVEREST-sub000/pkg/validator"
)

// Engine runs every operation as a single atomic write: the transition, the
// task and notification fan-out, the history entry and the outbox event
// commit together or not at all. Operations on one patient are serialized.
type Engine struct {
	store         repository.Store
	patients      *patient.Service
	tasks         *task.Service
	notifications *notification.Service
	care          *care.Service
	pharmacy      pharmacy.Service
	locks         *locker.Keyed
	validate      *validator.Validator
	metrics       *metrics.Metrics
	log           *logger.Logger
	now           func() time.Time
}

type Deps struct {
	Store    repository.Store
	Care     *care.Service
	Pharmacy pharmacy.Service
	Locks    *locker.Keyed
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewEngine(d Deps) *Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Locks == nil {
		d.Locks = locker.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New("clinic")
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Care == nil {
		d.Care = care.NewService(d.Store, d.Locks, d.Metrics, d.Logger, d.Now)
	}
	return &Engine{
		store:         d.Store,
		patients:      patient.NewService(d.Store, d.Now),
		tasks:         task.NewService(d.Store, d.Now),
		notifications: notification.NewService(d.Store, d.Now),
		care:          d.Care,
		pharmacy:      d.Pharmacy,
		locks:         d.Locks,
		validate:      validator.New(),
		metrics:       d.Metrics,
		log:           d.Logger,
		now:           d.Now,
	}
}

// step carries the transactional services of one operation.
type step struct {
	ctx           context.Context
	tx            repository.Store
	patients      *patient.Service
	tasks         *task.Service
	notifications *notification.Service
	care          *care.Service
	actor         model.Actor
	patient       *model.Patient
	now           time.Time
	compensate    []func(context.Context) error
}

// run executes fn for patientID inside the patient's lock and one store
// transaction. If the transaction fails, side effects registered with
// onRollback are undone in reverse order.
func (e *Engine) run(ctx context.Context, op string, patientID uuid.UUID, actor model.Actor, fn func(st *step) error) (*model.Patient, error) {
	start := time.Now()
	unlock := e.locks.Lock(patientID.String())
	defer unlock()

	var st *step
	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		st = e.newStep(ctx, tx, actor)
		p, err := st.patients.Get(ctx, patientID)
		if err != nil {
			return err
		}
		st.patient = p
		if err := fn(st); err != nil {
			return err
		}
		st.patient, err = st.patients.Get(ctx, patientID)
		return err
	})
	e.observe(op, start, err)

	if err != nil {
		if st != nil {
			e.rollback(ctx, op, patientID, st.compensate)
		}
		e.log.Warn("workflow operation failed", "operation", op, "patient_id", patientID.String(), "actor", actor.ID, "error", err.Error())
		return nil, err
	}

	e.log.Info("workflow operation completed", "operation", op, "patient_id", patientID.String(), "actor", actor.ID, "state", string(st.patient.State))
	return st.patient, nil
}

func (e *Engine) newStep(ctx context.Context, tx repository.Store, actor model.Actor) *step {
	return &step{
		ctx:           ctx,
		tx:            tx,
		patients:      e.patients.With(tx),
		tasks:         e.tasks.With(tx),
		notifications: e.notifications.With(tx),
		care:          e.care.With(tx),
		actor:         actor,
		now:           e.now(),
	}
}

func (e *Engine) rollback(ctx context.Context, op string, patientID uuid.UUID, undo []func(context.Context) error) {
	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](ctx); err != nil {
			e.log.Error(err, "compensation failed", "operation", op, "patient_id", patientID.String())
		}
	}
}

func (e *Engine) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.CodeOf(err).String()
	}
	e.metrics.WorkflowOperations.WithLabelValues(op, outcome).Inc()
	e.metrics.WorkflowLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (e *Engine) check(in interface{}) error {
	return e.validate.Struct(in)
}

// onRollback registers an undo for a side effect outside the store.
func (st *step) onRollback(fn func(context.Context) error) {
	st.compensate = append(st.compensate, fn)
}

func (st *step) id() uuid.UUID { return st.patient.ID }

func (st *step) transition(to model.State) error {
	p, err := st.patients.Transition(st.ctx, st.id(), to, st.actor)
	if err != nil {
		return err
	}
	st.patient = p
	return nil
}

func (st *step) patch(pp model.PatientPatch) error {
	p, err := st.patients.Patch(st.ctx, st.id(), pp, st.actor)
	if err != nil {
		return err
	}
	st.patient = p
	return nil
}

// requireActive rejects operations that do not move the patient but would
// still write to a discharged record.
func (st *step) requireActive() error {
	if st.patient.State.IsTerminal() {
		return apperrors.Validation(fmt.Sprintf("patient %s is discharged", st.id()), nil)
	}
	return nil
}

func (st *step) task(role model.Role, title, description string, details model.Details) (uuid.UUID, error) {
	return st.tasks.Create(st.ctx, role, model.Task{
		PatientID:   st.id(),
		Title:       title,
		Description: description,
		Priority:    st.patient.Priority,
		Details:     details,
	})
}

func (st *step) notify(role model.Role, typ model.EventType, title, message string, details model.Details) error {
	id := st.id()
	_, err := st.notifications.Publish(st.ctx, model.Notification{
		Role:      role,
		Type:      typ,
		Title:     title,
		Message:   message,
		Priority:  st.patient.Priority,
		PatientID: &id,
		Details:   details,
	})
	return err
}

// record appends the operation to the patient's history and queues its
// outbox event.
func (st *step) record(action model.EventType, details model.Details) error {
	if err := st.patients.RecordHistory(st.ctx, st.id(), model.HistoryEntry{
		Timestamp: st.now,
		Actor:     st.actor,
		Action:    action,
		Details:   details,
	}); err != nil {
		return err
	}
	return st.emit(action, details)
}

// emit queues an outbox event describing the patient as it is now.
func (st *step) emit(action model.EventType, details model.Details) error {
	ev := model.PatientEvent{
		Type:       action,
		PatientID:  st.id(),
		State:      st.patient.State,
		Actor:      st.actor,
		OccurredAt: st.now,
		Patient:    st.patient.Name,
		Details:    details,
	}
	if action == model.EventDischarged {
		owner := st.patient.Owner
		ev.Owner = &owner
	}
	out, err := model.NewOutboxEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to encode outbox event: %w", err)
	}
	if err := st.tx.Outbox().Create(st.ctx, out); err != nil {
		return fmt.Errorf("failed to write outbox event: %w", err)
	}
	return nil
}

// leaveConsultation closes the doctor's consultation task.
func (st *step) leaveConsultation() error {
	_, err := st.tasks.CompleteForPatient(st.ctx, model.RoleDoctor, st.id(), model.KindAssignment)
	return err
}

// admit opens a hospitalization and fans the admission out to the ward and
// the doctor. The patient must already be HOSPITALIZED.
func (st *step) admit(in AdmitInput) (*model.Hospitalization, error) {
	h, err := st.care.Admit(st.ctx, st.id(), in)
	if err != nil {
		return nil, err
	}
	hid := h.ID
	if err := st.patch(model.PatientPatch{HospitalizationID: &hid}); err != nil {
		return nil, err
	}

	details := model.HospitalizationPayload(model.HospitalizationDetails{
		HospitalizationID:   h.ID,
		Type:                h.Type,
		MonitoringFrequency: h.MonitoringFrequency,
		Reason:              h.Reason,
	})
	name := st.patient.Name
	if _, err := st.task(model.RoleHospitalization,
		fmt.Sprintf("Admit %s (%s)", name, h.Type),
		fmt.Sprintf("Monitor every %s. %d doses booked for the next 24h.", h.MonitoringFrequency, len(h.Administrations)),
		details); err != nil {
		return nil, err
	}
	if err := st.notify(model.RoleHospitalization, model.EventHospitalized, "New admission",
		fmt.Sprintf("%s admitted to %s", name, h.Type), details); err != nil {
		return nil, err
	}
	if err := st.notify(model.RoleDoctor, model.EventHospitalized, "Patient hospitalized",
		fmt.Sprintf("%s is now hospitalized (%s)", name, h.Type), details); err != nil {
		return nil, err
	}
	return h, nil
}
