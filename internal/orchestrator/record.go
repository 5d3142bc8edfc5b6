package orchestrator

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/MicroMind/backend/internal/shared/id"
)

// Slot identifies one output field of a record
type Slot int

const (
	SlotNone Slot = iota
	SlotLanguage
	SlotSentiment
	SlotTopic
	SlotResponse

	slotCount
)

// Slots lists the writable output slots in record order
var Slots = []Slot{SlotLanguage, SlotSentiment, SlotTopic, SlotResponse}

func (s Slot) String() string {
	switch s {
	case SlotNone:
		return "none"
	case SlotLanguage:
		return "language"
	case SlotSentiment:
		return "sentiment"
	case SlotTopic:
		return "topic"
	case SlotResponse:
		return "response"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// ParseSlot converts a slot name to a Slot
func ParseSlot(name string) (Slot, error) {
	for s := SlotNone; s < slotCount; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return SlotNone, fmt.Errorf("unknown slot %q", name)
}

// Record is the unit of work passed through the pipeline. A record is owned
// by exactly one worker while it is being processed.
type Record struct {
	ID        id.RecordID
	Input     string
	CreatedAt time.Time

	outputs [slotCount]string
	owner   Slot
}

// NewRecord creates a record for input with empty outputs
func NewRecord(input string) *Record {
	return &Record{
		ID:        id.NewRecordID(),
		Input:     input,
		CreatedAt: time.Now(),
	}
}

// Output returns the value of slot s
func (r *Record) Output(s Slot) string {
	if s <= SlotNone || s >= slotCount {
		return ""
	}
	return r.outputs[s]
}

// Set writes slot s. Only the module currently processing the record may
// write, and only to the slot it declared.
func (r *Record) Set(s Slot, value string) error {
	if s <= SlotNone || s >= slotCount || s != r.owner {
		return fmt.Errorf("%w: %s", ErrSlotNotOwned, s)
	}
	r.outputs[s] = value
	return nil
}

func (r *Record) bind(s Slot) {
	r.owner = s
}

// RecordView is a read-only copy of a record
type RecordView struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	CreatedAt time.Time `json:"created_at"`
	Language  string    `json:"language"`
	Sentiment string    `json:"sentiment"`
	Topic     string    `json:"topic"`
	Response  string    `json:"response"`
}

// Snapshot returns a copy of the record's current state
func (r *Record) Snapshot() RecordView {
	return RecordView{
		ID:        r.ID.String(),
		Input:     r.Input,
		CreatedAt: r.CreatedAt,
		Language:  r.outputs[SlotLanguage],
		Sentiment: r.outputs[SlotSentiment],
		Topic:     r.outputs[SlotTopic],
		Response:  r.outputs[SlotResponse],
	}
}
