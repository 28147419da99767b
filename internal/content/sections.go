package content

import (
	"bytes"
	"encoding/json"
	"reflect"
	"time"
)

// Settings keys
const (
	SettingAccentColor       = "accentColor"
	SettingAdminPassword     = "adminPassword"
	SettingAnimationsEnabled = "animationsEnabled"
)

// sectionField returns a pointer to the named section.
func (d *Document) sectionField(name string) (any, error) {
	switch name {
	case SectionHero:
		return &d.Hero, nil
	case SectionAbout:
		return &d.About, nil
	case SectionSkills:
		return &d.Skills, nil
	case SectionProjects:
		return &d.Projects, nil
	case SectionCertifications:
		return &d.Certifications, nil
	case SectionExperience:
		return &d.Experience, nil
	case SectionEducation:
		return &d.Education, nil
	case SectionContact:
		return &d.Contact, nil
	case SectionSEO:
		return &d.SEO, nil
	case SectionSettings:
		return &d.Settings, nil
	case SectionLanguages:
		return &d.Languages, nil
	default:
		return nil, &UnknownSectionError{Name: name}
	}
}

// Section returns the named section's current value.
func (d *Document) Section(name string) (any, error) {
	field, err := d.sectionField(name)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(field).Elem().Interface(), nil
}

// SetSection replaces the named section with raw wholesale. Fields absent
// from raw end up at their zero value; nothing from the previous value is kept.
// On a decode error the section is left zeroed, so callers that need
// all-or-nothing semantics should work on a Clone.
func (d *Document) SetSection(name string, raw json.RawMessage) error {
	field, err := d.sectionField(name)
	if err != nil {
		return err
	}

	v := reflect.ValueOf(field).Elem()
	v.Set(reflect.Zero(v.Type()))

	if err := json.Unmarshal(raw, field); err != nil {
		return &DecodeError{Section: name, Cause: err}
	}
	d.normalize()
	return nil
}

// SetSetting replaces a single key inside the settings section.
func (d *Document) SetSetting(key string, raw json.RawMessage) error {
	var target any
	switch key {
	case SettingAccentColor:
		target = &d.Settings.AccentColor
	case SettingAdminPassword:
		target = &d.Settings.AdminPassword
	case SettingAnimationsEnabled:
		target = &d.Settings.AnimationsEnabled
	default:
		return &UnknownSettingError{Key: key}
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		v := reflect.ValueOf(target).Elem()
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &DecodeError{Section: SectionSettings + "." + key, Cause: err}
	}
	return nil
}

// AddProject appends p with a fresh creation-time id and returns the stored copy.
func (d *Document) AddProject(p Project, now time.Time) Project {
	p.ID = NewProjectID(now, d.Projects)
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	d.Projects = append(d.Projects, p)
	return p
}
