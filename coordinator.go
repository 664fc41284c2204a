package fieldsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c0deZ3R0/go-field-sync/config"
	syncErrors "github.com/c0deZ3R0/go-field-sync/errors"
	"github.com/c0deZ3R0/go-field-sync/ledger"
	"github.com/c0deZ3R0/go-field-sync/logging"
	"github.com/c0deZ3R0/go-field-sync/mapping"
	"github.com/c0deZ3R0/go-field-sync/transform"
)

// Coordinator sequences a reconciliation pass: select mappings, invoke the
// transformer, hand the output to the transport or local store, update the
// ledger. It holds no transformation logic of its own.
type Coordinator struct {
	catalog     *mapping.Catalog
	transformer *transform.Transformer
	ledger      *ledger.Ledger
	transport   RemoteTransport
	local       LocalStore
	diag        logging.Diagnostics
	logger      *logging.Logger
}

// CoordinatorConfig wires the coordinator's collaborators.
type CoordinatorConfig struct {
	Catalog     *mapping.Catalog
	Transformer *transform.Transformer
	Ledger      *ledger.Ledger
	Transport   RemoteTransport
	LocalStore  LocalStore
	Diagnostics logging.Diagnostics
	Logger      *logging.Logger
}

// NewCoordinator creates a Coordinator from its collaborators. Catalog,
// ledger, transport and local store are required; diagnostics and logger
// default to no-ops.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.LocalStore == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if cfg.Transformer == nil {
		cfg.Transformer = transform.New(config.Default())
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = logging.NopDiagnostics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &Coordinator{
		catalog:     cfg.Catalog,
		transformer: cfg.Transformer,
		ledger:      cfg.Ledger,
		transport:   cfg.Transport,
		local:       cfg.LocalStore,
		diag:        cfg.Diagnostics,
		logger:      cfg.Logger.WithComponent(logging.Component("coordinator")),
	}, nil
}

// HandleEvent runs one reconciliation pass for an incoming event. Transport
// failures and other soft conditions land in Result.Errors; the pass itself
// completes degraded rather than aborting.
func (c *Coordinator) HandleEvent(ctx context.Context, ev Event) (*Result, error) {
	result := &Result{StartTime: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartTime)
	}()

	c.logger.DebugContext(ctx, "handling sync event",
		slog.String("trigger", ev.Trigger.String()),
		slog.String("local_type", ev.LocalType),
		slog.String("remote_type", ev.RemoteType),
	)

	if ev.Trigger.IsLocal() {
		mappings := c.catalog.ForLocalObject(ev.LocalType, ev.RecordType)
		for _, m := range mappings {
			if !m.RespondsTo(ev.Trigger) {
				result.Skipped++
				continue
			}
			c.pushMapping(ctx, m, ev, result)
		}
		return result, nil
	}

	mappings := c.catalog.ForRemoteObject(ev.RemoteType, ev.RecordType)
	for _, m := range mappings {
		if !m.RespondsTo(ev.Trigger) {
			result.Skipped++
			continue
		}
		c.pullMapping(ctx, m, ev, result)
	}
	return result, nil
}

// pushMapping executes one mapping's local→remote flow.
func (c *Coordinator) pushMapping(ctx context.Context, m *mapping.FieldMapping, ev Event, result *Result) {
	if m.PushAsync {
		result.Deferred = append(result.Deferred, DeferredPush{MappingID: m.ID, Event: ev})
		return
	}
	if !m.PushDrafts && isDraft(ev.Record) {
		result.Skipped++
		return
	}

	if ev.Trigger.IsDelete() {
		c.pushDelete(ctx, m, ev, result)
		return
	}

	row, err := c.ledger.CurrentForLocal(ctx, ev.LocalType, ev.LocalID)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	isNew := row == nil

	res := c.transformer.MapParams(m, ev.Record, ev.Trigger, transform.Options{
		InlineKeys: c.transport.SupportsInlineKeys(),
		NewRecord:  isNew,
	})

	if res.MissingRequired {
		result.Blocked = append(result.Blocked, BlockedRecord{
			MappingID: m.ID,
			LocalID:   ev.LocalID,
			Fields:    res.MissingFields,
		})
		if err := c.local.FlagMissingRequired(ctx, ev.LocalType, ev.LocalID, res.MissingFields); err != nil {
			result.Errors = append(result.Errors, err)
		}
		blocked := syncErrors.NewMissingRequired(syncErrors.OpPush,
			fmt.Errorf("record %s/%s lacks %s", ev.LocalType, ev.LocalID, strings.Join(res.MissingFields, ", ")))
		c.logger.LogError(ctx, blocked, "push blocked on missing required fields",
			slog.String("mapping", m.ID),
			slog.String("local_id", ev.LocalID),
		)
		return
	}

	if len(res.Params) == 0 && len(res.Keys) == 0 {
		result.Skipped++
		return
	}

	if isNew {
		c.pushCreate(ctx, m, ev, res, result)
		return
	}

	if err := c.transport.Update(ctx, m.RemoteObject, row.RemoteID, res.Params); err != nil {
		result.Errors = append(result.Errors,
			syncErrors.NewTransportError(syncErrors.OpPush, err).WithMetadata("remote_id", row.RemoteID))
		return
	}
	if err := c.ledger.Touch(ctx, row); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.MappingsPushed++
}

// pushCreate establishes a new remote record: a provisional ledger row with
// a temporary identifier is written first, so a crash mid-create leaves a
// recoverable trace in the failure inventory.
func (c *Coordinator) pushCreate(ctx context.Context, m *mapping.FieldMapping, ev Event, res *transform.Result, result *Result) {
	row := &ledger.ObjectMap{
		LocalType: ev.LocalType,
		LocalID:   ev.LocalID,
		RemoteID:  ledger.NewTemporaryID(ledger.Push),
		Action:    ledger.ActionPending,
	}
	if _, err := c.ledger.Create(ctx, row); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}

	remoteID, err := c.transport.Create(ctx, m.RemoteObject, res.Params, res.Keys, res.Prematch)
	if err != nil {
		// The pending row stays behind; the failure inventory surfaces it
		// for the retry job.
		result.Errors = append(result.Errors,
			syncErrors.NewTransportError(syncErrors.OpPush, err).WithMetadata("local_id", ev.LocalID))
		return
	}

	if err := c.ledger.Resolve(ctx, row, remoteID); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.MappingsPushed++
}

func (c *Coordinator) pushDelete(ctx context.Context, m *mapping.FieldMapping, ev Event, result *Result) {
	row, err := c.ledger.CurrentForLocal(ctx, ev.LocalType, ev.LocalID)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	if row == nil {
		result.Skipped++
		return
	}

	if !row.HasTemporaryRemoteID() {
		if err := c.transport.Delete(ctx, m.RemoteObject, row.RemoteID); err != nil {
			result.Errors = append(result.Errors,
				syncErrors.NewTransportError(syncErrors.OpPush, err).WithMetadata("remote_id", row.RemoteID))
			return
		}
	}
	if err := c.ledger.BreakForLocal(ctx, ev.LocalType, ev.LocalID); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.MappingsPushed++
}

// pullMapping executes one mapping's remote→local flow.
func (c *Coordinator) pullMapping(ctx context.Context, m *mapping.FieldMapping, ev Event, result *Result) {
	if ev.Trigger == mapping.RemoteDelete {
		c.pullDelete(ctx, ev, result)
		return
	}

	res := c.transformer.MapParams(m, ev.Record, ev.Trigger, transform.Options{})
	if len(res.Pulls) == 0 {
		result.Skipped++
		return
	}

	row, err := c.ledger.LookupByRemote(ctx, ev.RemoteID)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}

	if row == nil {
		c.pullCreate(ctx, m, ev, res, result)
		return
	}

	if err := c.local.Apply(ctx, row.LocalType, row.LocalID, res.Pulls, m.PullToDrafts); err != nil {
		result.Errors = append(result.Errors, syncErrors.WrapOpComponent(err, syncErrors.OpPull, "local-store"))
		return
	}
	if err := c.ledger.Touch(ctx, row); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.MappingsPulled++
}

// pullCreate establishes a new local record for an unmapped remote one. The
// ledger row is written first with a temporary local identifier so an
// interrupted pull is visible in the failure inventory.
func (c *Coordinator) pullCreate(ctx context.Context, m *mapping.FieldMapping, ev Event, res *transform.Result, result *Result) {
	row := &ledger.ObjectMap{
		LocalType: m.LocalObject,
		LocalID:   ledger.NewTemporaryID(ledger.Pull),
		RemoteID:  ev.RemoteID,
		Action:    ledger.ActionPending,
	}
	if _, err := c.ledger.Create(ctx, row); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}

	localID, err := c.local.Create(ctx, m.LocalObject, res.Pulls, m.PullToDrafts)
	if err != nil {
		result.Errors = append(result.Errors, syncErrors.WrapOpComponent(err, syncErrors.OpPull, "local-store"))
		return
	}

	if err := c.ledger.ResolveLocal(ctx, row, localID); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.MappingsPulled++
}

func (c *Coordinator) pullDelete(ctx context.Context, ev Event, result *Result) {
	row, err := c.ledger.LookupByRemote(ctx, ev.RemoteID)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	if row == nil {
		result.Skipped++
		return
	}

	if err := c.local.Delete(ctx, row.LocalType, row.LocalID); err != nil {
		result.Errors = append(result.Errors, syncErrors.WrapOpComponent(err, syncErrors.OpPull, "local-store"))
		return
	}
	if err := c.ledger.BreakForRemote(ctx, ev.RemoteID); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}
	result.MappingsPulled++
}

// isDraft applies the record-payload draft convention.
func isDraft(rec transform.Record) bool {
	v, ok := rec["draft"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
