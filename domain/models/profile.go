package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"elbiefit/domain/keys"
	"elbiefit/domain/units"
	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/utils"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Preferences is the typed core of a user's settings. Keys the application
// does not know about are kept in Extra and written back untouched.
type Preferences struct {
	ShowTips bool                            `json:"show_tips"`
	Theme    string                          `json:"theme" validate:"oneof=light dark system"`
	Units    string                          `json:"units" validate:"oneof=metric imperial"`
	Extra    map[string]types.AttributeValue `json:"-" validate:"-"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		ShowTips: true,
		Theme:    ThemeLight,
		Units:    units.Metric,
	}
}

// Profile is the single PROFILE row of a user partition.
type Profile struct {
	PK          string      `json:"-" validate:"-"`
	SK          string      `json:"-" validate:"-"`
	UserSub     string      `json:"user_sub" validate:"-"`
	DisplayName string      `json:"display_name" validate:"required,min=1,max=100"`
	Email       string      `json:"email" validate:"required,email"`
	Timezone    string      `json:"timezone" validate:"required,timezone"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at" validate:"-"`
	UpdatedAt   time.Time   `json:"updated_at" validate:"-"`
}

func NewProfile(userSub, displayName, email, timezone string, now time.Time) *Profile {
	return &Profile{
		PK:          keys.UserPK(userSub),
		SK:          keys.ProfileSK,
		UserSub:     userSub,
		DisplayName: displayName,
		Email:       email,
		Timezone:    timezone,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WeightUnit is "lb" for imperial users, otherwise "kg".
func (p *Profile) WeightUnit() string {
	return units.WeightUnit(p.Preferences.Units)
}

// CreatedAtReadable renders the creation date like "13 November 2025".
func (p *Profile) CreatedAtReadable() string {
	if p.CreatedAt.IsZero() {
		return ""
	}
	return p.CreatedAt.Format("02 January 2006")
}

func (p *Profile) Validate() error {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Email = strings.TrimSpace(p.Email)
	if fields := utils.ValidateStruct(p); fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

type profileRecord struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Type        string `dynamodbav:"type"`
	DisplayName string `dynamodbav:"display_name"`
	Email       string `dynamodbav:"email"`
	Timezone    string `dynamodbav:"timezone"`
	timestamps
}

func (p *Profile) ToItem() (Item, error) {
	item, err := marshal(profileRecord{
		PK:          p.PK,
		SK:          p.SK,
		Type:        TypeProfile,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Timezone:    p.Timezone,
		timestamps:  newTimestamps(p.CreatedAt, p.UpdatedAt),
	})
	if err != nil {
		return nil, err
	}
	item["preferences"] = p.Preferences.toAttribute()
	return item, nil
}

func ProfileFromItem(item Item) (*Profile, error) {
	var rec profileRecord
	if err := unmarshal(item, &rec); err != nil {
		return nil, err
	}
	if rec.SK != keys.ProfileSK {
		return nil, fmt.Errorf("%w: profile row with sort key %q", keys.ErrMalformedKey, rec.SK)
	}
	prefs, err := preferencesFromAttribute(item["preferences"])
	if err != nil {
		return nil, err
	}
	created, updated, err := rec.timestamps.parse()
	if err != nil {
		return nil, err
	}
	p := &Profile{
		PK:          rec.PK,
		SK:          rec.SK,
		UserSub:     strings.TrimPrefix(rec.PK, keys.UserPrefix),
		DisplayName: rec.DisplayName,
		Email:       rec.Email,
		Timezone:    rec.Timezone,
		Preferences: prefs,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p Preferences) toAttribute() types.AttributeValue {
	m := make(map[string]types.AttributeValue, len(p.Extra)+3)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["show_tips"] = &types.AttributeValueMemberBOOL{Value: p.ShowTips}
	m["theme"] = &types.AttributeValueMemberS{Value: p.Theme}
	m["units"] = &types.AttributeValueMemberS{Value: p.Units}
	return &types.AttributeValueMemberM{Value: m}
}

func preferencesFromAttribute(av types.AttributeValue) (Preferences, error) {
	prefs := DefaultPreferences()

	switch v := av.(type) {
	case nil, *types.AttributeValueMemberNULL:
		return prefs, nil
	case *types.AttributeValueMemberM:
		for k, attr := range v.Value {
			switch k {
			case "show_tips":
				b, ok := attr.(*types.AttributeValueMemberBOOL)
				if !ok {
					return prefs, fmt.Errorf("preferences.show_tips: unexpected type %T", attr)
				}
				prefs.ShowTips = b.Value
			case "theme":
				if s, ok := attr.(*types.AttributeValueMemberS); ok {
					prefs.Theme = s.Value
				}
			case "units":
				if s, ok := attr.(*types.AttributeValueMemberS); ok {
					prefs.Units = s.Value
				}
			default:
				if prefs.Extra == nil {
					prefs.Extra = map[string]types.AttributeValue{}
				}
				prefs.Extra[k] = attr
			}
		}
		return prefs, nil
	default:
		return prefs, fmt.Errorf("preferences: unexpected type %T", av)
	}
}

// AccountUpdateInput is the account section of the profile page.
type AccountUpdateInput struct {
	DisplayName string `form:"display_name" validate:"required,min=1,max=100"`
	Timezone    string `form:"timezone" validate:"required,timezone"`
}

func (in *AccountUpdateInput) Validate() error {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Timezone = strings.TrimSpace(in.Timezone)
	if fields := utils.ValidateStruct(in); fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

// PreferencesUpdateInput is the preferences section of the profile page.
type PreferencesUpdateInput struct {
	ShowTips bool   `form:"show_tips"`
	Theme    string `form:"theme" validate:"required,oneof=light dark system"`
	Units    string `form:"units" validate:"required,oneof=metric imperial"`
}

func (in *PreferencesUpdateInput) Validate() error {
	in.Theme = strings.ToLower(strings.TrimSpace(in.Theme))
	in.Units = strings.ToLower(strings.TrimSpace(in.Units))
	if fields := utils.ValidateStruct(in); fields.HasErrors() {
		return apperrors.NewValidationError(fields)
	}
	return nil
}
