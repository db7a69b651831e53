package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"elbiefit/domain/keys"
)

// Item is the store-native representation of a single table row.
type Item = map[string]types.AttributeValue

// Item type tags stored in the "type" attribute.
const (
	TypeProfile  = "profile"
	TypeWorkout  = "workout"
	TypeSet      = "set"
	TypeExercise = "exercise"
)

// TimestampLayout renders instants in UTC with a literal Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.999999Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Entity is the closed set of decoded row variants: *Profile, *Workout,
// *WorkoutSet and *Exercise.
type Entity interface {
	entity()
}

func (*Profile) entity()    {}
func (*Workout) entity()    {}
func (*WorkoutSet) entity() {}
func (*Exercise) entity()   {}

// DecodeItem turns a raw row into its typed variant.
func DecodeItem(item Item) (Entity, error) {
	switch ItemType(item) {
	case TypeProfile:
		return ProfileFromItem(item)
	case TypeWorkout:
		return WorkoutFromItem(item)
	case TypeSet:
		return WorkoutSetFromItem(item)
	case TypeExercise:
		return ExerciseFromItem(item)
	default:
		return nil, fmt.Errorf("unknown item type %q for key %s/%s", ItemType(item), StringAttr(item, "PK"), StringAttr(item, "SK"))
	}
}

// ItemType falls back to the sort key shape for rows written without a
// type attribute.
func ItemType(item Item) string {
	if t := StringAttr(item, "type"); t != "" {
		return t
	}
	sk := StringAttr(item, "SK")
	switch {
	case sk == keys.ProfileSK:
		return TypeProfile
	case strings.HasPrefix(sk, keys.ExercisePrefix):
		return TypeExercise
	case keys.IsSetSK(sk):
		return TypeSet
	case strings.HasPrefix(sk, keys.WorkoutPrefix):
		return TypeWorkout
	}
	return ""
}

// StringAttr returns a string attribute or "" when absent or not a string.
func StringAttr(item Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// DecimalAttr reads a number (or numeric string) attribute exactly.
func DecimalAttr(item Item, name string) (*decimal.Decimal, error) {
	var raw string
	switch v := item[name].(type) {
	case nil, *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	default:
		return nil, fmt.Errorf("attribute %s: unexpected type %T", name, v)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", name, err)
	}
	return &d, nil
}

// DecimalValue encodes a decimal as a number attribute without going
// through float64.
func DecimalValue(d decimal.Decimal) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: d.String()}
}

type timestamps struct {
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func (ts timestamps) parse() (time.Time, time.Time, error) {
	created, err := ParseTimestamp(ts.CreatedAt)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("created_at: %w", err)
	}
	updated, err := ParseTimestamp(ts.UpdatedAt)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("updated_at: %w", err)
	}
	return created, updated, nil
}

func newTimestamps(created, updated time.Time) timestamps {
	return timestamps{
		CreatedAt: FormatTimestamp(created),
		UpdatedAt: FormatTimestamp(updated),
	}
}

func marshal(record interface{}) (Item, error) {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return item, nil
}

func unmarshal(item Item, record interface{}) error {
	if err := attributevalue.UnmarshalMap(item, record); err != nil {
		return fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return nil
}
