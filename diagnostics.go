package tidisk

import (
	"fmt"

	"github.com/dsoprea/go-logging"
)

var (
	diagnosticsLogger = log.NewLogger("tidisk.diagnostics")
)

// Severity is the weight of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "Error"
	}

	return "Warning"
}

// Diagnostic is one recorded problem.
type Diagnostic struct {
	Severity Severity
	Entity   Entity
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("Diagnostic<SEVERITY=[%s] KIND=[%s] AU=(%d) PATH=[%s] MESSAGE=[%s]>", d.Severity, d.Entity.Kind(), d.Entity.AllocationUnit(), d.Entity.FullPath(), d.Message)
}

// EntityMessages is every message of one severity recorded for one entity.
type EntityMessages struct {
	Entity   Entity
	Messages []string
}

// SectorConflict is a sector that was claimed by one owner and then claimed
// again by a different one. The later claim wins.
type SectorConflict struct {
	Sector        int
	PreviousRole  MapRole
	PreviousOwner Entity
	Role          MapRole
	Owner         Entity
}

func (sc SectorConflict) String() string {
	return fmt.Sprintf("remapped sector %d from %c for %s %d (%s) to %c for %s %d (%s)",
		sc.Sector,
		sc.PreviousRole, sc.PreviousOwner.Kind(), sc.PreviousOwner.AllocationUnit(), sc.PreviousOwner.FullPath(),
		sc.Role, sc.Owner.Kind(), sc.Owner.AllocationUnit(), sc.Owner.FullPath())
}

type messageLog struct {
	order    []EntityId
	messages map[EntityId][]string
}

func newMessageLog() *messageLog {
	return &messageLog{
		order:    make([]EntityId, 0),
		messages: make(map[EntityId][]string),
	}
}

func (ml *messageLog) add(id EntityId, message string) {
	if _, found := ml.messages[id]; found == false {
		ml.order = append(ml.order, id)
	}

	ml.messages[id] = append(ml.messages[id], message)
}

func (ml *messageLog) count() (n int) {
	for _, messages := range ml.messages {
		n += len(messages)
	}

	return n
}

// Diagnostics is the registry for one decode. It assigns every parsed entity
// a stable id and keeps a global, per-entity log of errors and warnings in
// the order the entities first reported.
type Diagnostics struct {
	entities []Entity

	errors   *messageLog
	warnings *messageLog

	all       []Diagnostic
	conflicts []SectorConflict
}

// NewDiagnostics returns an empty registry.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		// Index 0 is the placeholder id.
		entities: []Entity{nil},

		errors:   newMessageLog(),
		warnings: newMessageLog(),

		all:       make([]Diagnostic, 0),
		conflicts: make([]SectorConflict, 0),
	}
}

func (d *Diagnostics) register(e diagnosable) {
	eb := e.base()
	if eb.id != 0 {
		return
	}

	eb.id = EntityId(len(d.entities))
	d.entities = append(d.entities, e)
}

// Entity returns the entity with the given id or nil.
func (d *Diagnostics) Entity(id EntityId) Entity {
	if id <= 0 || int(id) >= len(d.entities) {
		return nil
	}

	return d.entities[id]
}

// EntityCount is the number of registered entities.
func (d *Diagnostics) EntityCount() int {
	return len(d.entities) - 1
}

// AddError records an error on the entity and in the global log.
func (d *Diagnostics) AddError(e diagnosable, message string) {
	d.register(e)

	eb := e.base()
	eb.errors = append(eb.errors, message)

	d.addGlobal(SeverityError, e, message)
}

// AddWarning records a warning on the entity and in the global log.
func (d *Diagnostics) AddWarning(e diagnosable, message string) {
	d.register(e)

	eb := e.base()
	eb.warnings = append(eb.warnings, message)

	d.addGlobal(SeverityWarning, e, message)
}

func (d *Diagnostics) addGlobal(severity Severity, e diagnosable, message string) {
	d.register(e)

	diagnostic := Diagnostic{
		Severity: severity,
		Entity:   e,
		Message:  message,
	}

	d.all = append(d.all, diagnostic)

	if severity == SeverityError {
		d.errors.add(e.Id(), message)
	} else {
		d.warnings.add(e.Id(), message)
	}

	diagnosticsLogger.Debugf(nil, "%s", diagnostic)
}

// addConflict records a sector conflict. The conflict is logged globally
// against the volume but is not attached to either owner's own list.
func (d *Diagnostics) addConflict(volume diagnosable, sc SectorConflict) {
	d.conflicts = append(d.conflicts, sc)

	diagnosticsLogger.Warningf(nil, "%s", sc)

	d.addGlobal(SeverityError, volume, sc.String())
}

// All returns every diagnostic in the order recorded.
func (d *Diagnostics) All() []Diagnostic {
	return d.all
}

// Conflicts returns every sector conflict in the order recorded.
func (d *Diagnostics) Conflicts() []SectorConflict {
	return d.conflicts
}

// ErrorCount is the total number of errors, conflicts included.
func (d *Diagnostics) ErrorCount() int {
	return d.errors.count()
}

// WarningCount is the total number of warnings.
func (d *Diagnostics) WarningCount() int {
	return d.warnings.count()
}

// GlobalErrors returns the errors grouped by entity.
func (d *Diagnostics) GlobalErrors() []EntityMessages {
	return d.grouped(d.errors)
}

// GlobalWarnings returns the warnings grouped by entity.
func (d *Diagnostics) GlobalWarnings() []EntityMessages {
	return d.grouped(d.warnings)
}

func (d *Diagnostics) grouped(ml *messageLog) []EntityMessages {
	grouped := make([]EntityMessages, len(ml.order))
	for i, id := range ml.order {
		grouped[i] = EntityMessages{
			Entity:   d.entities[id],
			Messages: ml.messages[id],
		}
	}

	return grouped
}

// Dump prints the global errors and warnings.
func (d *Diagnostics) Dump() {
	fmt.Printf("ERRORS:\n")
	dumpGrouped(d.GlobalErrors(), "  ")

	fmt.Printf("\n")

	fmt.Printf("WARNINGS:\n")
	dumpGrouped(d.GlobalWarnings(), "  ")
}

func dumpGrouped(grouped []EntityMessages, prefix string) {
	for _, em := range grouped {
		fmt.Printf("%s%-6s%s  %s\n", prefix, em.Entity.Kind(), em.Entity.Address(), em.Entity.FullPath())

		for _, message := range em.Messages {
			fmt.Printf("%s  %s\n", prefix, message)
		}
	}
}
