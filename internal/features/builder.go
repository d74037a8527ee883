// Package features derives model-ready feature batches from raw trip records.
//
// The builder is a pure transformation: it never mutates its input, performs
// no I/O, and produces the same output for the same input batch. Rows that
// cannot legally enter training (no parseable pickup time, or a fare that
// fails the fare > 0 screen) are dropped; cells that are present but
// malformed abort the build with a CoercionError rather than being silently
// masked.
package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tripworks/tipcast/internal/models"
)

// Raw trip record columns the builder consumes.
const (
	ColPickupDatetime  = "pickup_datetime"
	ColDropoffDatetime = "dropoff_datetime"
	ColPickupZoneID    = "pickup_zone_id"
	ColDropoffZoneID   = "dropoff_zone_id"
	ColPassengerCount  = "passenger_count"
	ColFareAmount      = "fare_amount"
	ColTipAmount       = "tip_amount"
)

// Derived feature and target columns.
const (
	FeatPickupWeekday  = "pickup_weekday"   // ISO day of week, Monday=0 .. Sunday=6
	FeatPickupHour     = "pickup_hour"      // Hour of day, 0..23
	FeatPickupWeekHour = "pickup_week_hour" // weekday*24 + hour, 0..167
	FeatPickupMinute   = "pickup_minute"    // Minute within the hour, 0..59
	FeatPassengerCount = "passenger_count"
	FeatPickupZoneID   = "pickup_zone_id"
	FeatDropoffZoneID  = "dropoff_zone_id"

	TargetTipFraction = "tip_fraction" // tip_amount / fare_amount
	TargetHighTip     = "high_tip"     // 1 when tip_fraction exceeds the threshold, else 0
)

// MissingSentinel marks feature values whose raw cell was empty.
const MissingSentinel = -1.0

// Accepted pickup timestamp layouts, tried in order.
var pickupLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// FeatureColumns returns the derived feature columns in output order,
// excluding the target.
func FeatureColumns() []string {
	return []string{
		FeatPickupWeekday,
		FeatPickupHour,
		FeatPickupWeekHour,
		FeatPickupMinute,
		FeatPassengerCount,
		FeatPickupZoneID,
		FeatDropoffZoneID,
	}
}

// Config controls target derivation.
type Config struct {
	// Target selects the column appended when building with a target:
	// TargetTipFraction or TargetHighTip. Empty defaults to TargetTipFraction.
	Target string
	// HighTipThreshold is the strict lower bound a tip fraction must exceed
	// to label a row 1 under TargetHighTip. Zero defaults to 0.2.
	HighTipThreshold float64
	// MaxTipFraction, when positive, drops rows whose tip fraction exceeds
	// it. Zero disables the cap.
	MaxTipFraction float64
}

// Builder turns raw trip batches into feature batches.
type Builder struct {
	cfg Config
}

// New returns a builder for the given configuration.
func New(cfg Config) (*Builder, error) {
	if cfg.Target == "" {
		cfg.Target = TargetTipFraction
	}
	if cfg.Target != TargetTipFraction && cfg.Target != TargetHighTip {
		return nil, errors.New("target must be 'tip_fraction' or 'high_tip'")
	}
	if cfg.HighTipThreshold == 0 {
		cfg.HighTipThreshold = 0.2
	}
	if cfg.HighTipThreshold <= 0 || cfg.HighTipThreshold >= 1 {
		return nil, errors.New("high tip threshold must be between 0 and 1 exclusive")
	}
	if cfg.MaxTipFraction < 0 {
		return nil, errors.New("max tip fraction must not be negative")
	}
	return &Builder{cfg: cfg}, nil
}

// Target returns the target column this builder appends.
func (b *Builder) Target() string {
	return b.cfg.Target
}

// Build derives a feature batch from raw. When includeTarget is true the
// target column is appended after the feature columns and the tip_amount
// column becomes required.
//
// Rows are dropped when the pickup timestamp is missing or unparseable, when
// the fare is missing or fails the fare > 0 screen, and, with a configured
// cap, when the tip fraction exceeds it. A present but malformed cell aborts
// the build with a CoercionError carrying the column, row, and value.
func (b *Builder) Build(raw *models.RawBatch, includeTarget bool) (*models.FeatureBatch, error) {
	if raw == nil {
		return nil, errors.New("nil raw batch")
	}
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raw batch: %w", err)
	}

	required := []string{ColPickupDatetime, ColPickupZoneID, ColDropoffZoneID, ColPassengerCount, ColFareAmount}
	if includeTarget {
		required = append(required, ColTipAmount)
	}
	idx := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		i, ok := raw.ColumnIndex(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[name] = i
	}
	if len(missing) > 0 {
		return nil, SchemaError{Missing: missing}
	}

	columns := FeatureColumns()
	if includeTarget {
		columns = append(columns, b.cfg.Target)
	}

	rows := make([][]float64, 0, len(raw.Rows))
	for i, row := range raw.Rows {
		pickup, ok := parsePickup(row[idx[ColPickupDatetime]])
		if !ok {
			continue
		}

		fareCell := strings.TrimSpace(row[idx[ColFareAmount]])
		if fareCell == "" {
			// A missing fare cannot pass the fare > 0 screen.
			continue
		}
		fare, err := parseAmount(fareCell)
		if err != nil {
			return nil, CoercionError{Column: ColFareAmount, Row: i, Value: fareCell, Err: err}
		}
		if fare <= 0 {
			continue
		}

		var target float64
		if includeTarget {
			tip := 0.0
			if tipCell := strings.TrimSpace(row[idx[ColTipAmount]]); tipCell != "" {
				tip, err = parseAmount(tipCell)
				if err != nil {
					return nil, CoercionError{Column: ColTipAmount, Row: i, Value: tipCell, Err: err}
				}
			}
			fraction := tip / fare
			if b.cfg.MaxTipFraction > 0 && fraction > b.cfg.MaxTipFraction {
				continue
			}
			target = fraction
			if b.cfg.Target == TargetHighTip {
				if fraction > b.cfg.HighTipThreshold {
					target = 1
				} else {
					target = 0
				}
			}
		}

		weekday := float64((int(pickup.Weekday()) + 6) % 7)
		hour := float64(pickup.Hour())
		out := make([]float64, 0, len(columns))
		out = append(out, weekday, hour, weekday*24+hour, float64(pickup.Minute()))
		for _, col := range []string{ColPassengerCount, ColPickupZoneID, ColDropoffZoneID} {
			v, cerr := coerceFeature(col, i, row[idx[col]])
			if cerr != nil {
				return nil, cerr
			}
			out = append(out, v)
		}
		if includeTarget {
			out = append(out, target)
		}
		rows = append(rows, out)
	}

	return &models.FeatureBatch{Columns: columns, Rows: rows}, nil
}

// parsePickup tries the accepted timestamp layouts in order. A value that
// matches none of them means the row cannot be placed in time and is dropped
// rather than coerced.
func parsePickup(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range pickupLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseAmount parses a non-empty monetary cell. NaN and infinities are
// rejected so they can never leak into a target.
func parseAmount(value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	return f, nil
}

// coerceFeature maps an empty cell to the missing-value sentinel and a
// malformed one to a CoercionError.
func coerceFeature(column string, row int, value string) (float64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return MissingSentinel, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, CoercionError{Column: column, Row: row, Value: v, Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, CoercionError{Column: column, Row: row, Value: v, Err: errors.New("not a finite number")}
	}
	return f, nil
}
