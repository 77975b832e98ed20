// Package keyresult provides the key result domain model. A key result
// is a measurable outcome under an objective; it carries its own tenant
// ID so repository queries never depend on a join for tenant filtering.
package keyresult

import (
	"fmt"
	"math"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
)

// Kind distinguishes metric key results (progress interpolated between
// start and target values) from milestone ones (done or not done).
type Kind string

const (
	KindMetric    Kind = "metric"
	KindMilestone Kind = "milestone"
)

// IsValid checks if the kind is valid.
func (k Kind) IsValid() bool {
	return k == KindMetric || k == KindMilestone
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// MaxConfidence is the upper bound of the confidence scale.
const MaxConfidence = 10

// KeyResult represents a measurable outcome under an objective.
type KeyResult struct {
	id           shared.ID
	tenantID     shared.ID
	objectiveID  shared.ID
	title        string
	kind         Kind
	startValue   float64
	targetValue  float64
	currentValue float64
	unit         string
	confidence   int // 0..10
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a new KeyResult.
func New(tenantID, objectiveID shared.ID, title string, kind Kind, startValue, targetValue float64, unit string) (*KeyResult, error) {
	if tenantID.IsZero() {
		return nil, fmt.Errorf("%w: tenantID is required", shared.ErrValidation)
	}
	if objectiveID.IsZero() {
		return nil, fmt.Errorf("%w: objectiveID is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: invalid key result kind", shared.ErrValidation)
	}
	if kind == KindMetric && startValue == targetValue {
		return nil, fmt.Errorf("%w: target value must differ from start value", shared.ErrValidation)
	}
	if kind == KindMilestone {
		startValue, targetValue = 0, 1
	}

	now := time.Now().UTC()
	return &KeyResult{
		id:           shared.NewID(),
		tenantID:     tenantID,
		objectiveID:  objectiveID,
		title:        title,
		kind:         kind,
		startValue:   startValue,
		targetValue:  targetValue,
		currentValue: startValue,
		unit:         unit,
		confidence:   MaxConfidence / 2,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstitute recreates a KeyResult from persistence.
func Reconstitute(
	id, tenantID, objectiveID shared.ID,
	title string,
	kind Kind,
	startValue, targetValue, currentValue float64,
	unit string,
	confidence int,
	createdAt, updatedAt time.Time,
) *KeyResult {
	return &KeyResult{
		id:           id,
		tenantID:     tenantID,
		objectiveID:  objectiveID,
		title:        title,
		kind:         kind,
		startValue:   startValue,
		targetValue:  targetValue,
		currentValue: currentValue,
		unit:         unit,
		confidence:   confidence,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

// ID returns the key result ID.
func (k *KeyResult) ID() shared.ID { return k.id }

// TenantID returns the owning tenant's ID.
func (k *KeyResult) TenantID() shared.ID { return k.tenantID }

// ObjectiveID returns the parent objective's ID.
func (k *KeyResult) ObjectiveID() shared.ID { return k.objectiveID }

// Title returns the title.
func (k *KeyResult) Title() string { return k.title }

// Kind returns the key result kind.
func (k *KeyResult) Kind() Kind { return k.kind }

// StartValue returns the starting value.
func (k *KeyResult) StartValue() float64 { return k.startValue }

// TargetValue returns the target value.
func (k *KeyResult) TargetValue() float64 { return k.targetValue }

// CurrentValue returns the latest recorded value.
func (k *KeyResult) CurrentValue() float64 { return k.currentValue }

// Unit returns the value unit label.
func (k *KeyResult) Unit() string { return k.unit }

// Confidence returns the 0..10 confidence score.
func (k *KeyResult) Confidence() int { return k.confidence }

// CreatedAt returns the creation timestamp.
func (k *KeyResult) CreatedAt() time.Time { return k.createdAt }

// UpdatedAt returns the last update timestamp.
func (k *KeyResult) UpdatedAt() time.Time { return k.updatedAt }

// Progress computes completion as a 0..100 percentage. Metric progress
// interpolates between start and target, clamped; milestone progress is
// all-or-nothing.
func (k *KeyResult) Progress() int {
	if k.kind == KindMilestone {
		if k.currentValue >= k.targetValue {
			return 100
		}
		return 0
	}
	span := k.targetValue - k.startValue
	if span == 0 {
		return 0
	}
	ratio := (k.currentValue - k.startValue) / span
	pct := int(math.Round(ratio * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// UpdateTitle updates the title.
func (k *KeyResult) UpdateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	k.title = title
	k.updatedAt = time.Now().UTC()
	return nil
}

// UpdateTarget changes the target value for a metric key result.
func (k *KeyResult) UpdateTarget(targetValue float64) error {
	if k.kind == KindMilestone {
		return fmt.Errorf("%w: milestone key results have a fixed target", shared.ErrValidation)
	}
	if targetValue == k.startValue {
		return fmt.Errorf("%w: target value must differ from start value", shared.ErrValidation)
	}
	k.targetValue = targetValue
	k.updatedAt = time.Now().UTC()
	return nil
}

// Record applies a check-in measurement.
func (k *KeyResult) Record(value float64, confidence int) error {
	if confidence < 0 || confidence > MaxConfidence {
		return fmt.Errorf("%w: confidence must be between 0 and %d", shared.ErrValidation, MaxConfidence)
	}
	k.currentValue = value
	k.confidence = confidence
	k.updatedAt = time.Now().UTC()
	return nil
}

// Complete marks a milestone key result as done.
func (k *KeyResult) Complete() error {
	if k.kind != KindMilestone {
		return fmt.Errorf("%w: only milestone key results can be completed directly", shared.ErrValidation)
	}
	k.currentValue = k.targetValue
	k.updatedAt = time.Now().UTC()
	return nil
}
