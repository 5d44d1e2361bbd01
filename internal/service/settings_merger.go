package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/persistorai/podrestore/internal/models"
)

// maxGroupNameLen is the longest contact group name accepted.
const maxGroupNameLen = 255

// settingsDelta is the validated result of merging archived settings. The
// auto-follow-back group is resolved separately because it may need creating.
type settingsDelta struct {
	patch     models.SettingsPatch
	aspect    string
	aspectSet bool
	fields    int
	errs      []error
}

// mergeSettings validates the settings-shaped subset of the archive.
func mergeSettings(sd models.SettingsData) settingsDelta {
	var d settingsDelta

	if sd.Language != nil {
		lang, err := normalizeLanguage(*sd.Language)
		if err != nil {
			d.errs = append(d.errs, &models.FieldError{Field: "language", Err: err})
		} else {
			d.patch.Language = &lang
			d.fields++
		}
	}

	for _, f := range []struct {
		src *bool
		dst **bool
	}{
		{sd.StripExif, &d.patch.StripExif},
		{sd.ShowCommunitySpotlightInStream, &d.patch.ShowCommunitySpotlightInStream},
		{sd.AutoFollowBack, &d.patch.AutoFollowBack},
	} {
		if f.src != nil {
			*f.dst = f.src
			d.fields++
		}
	}

	if sd.AutoFollowBackAspect != nil {
		name, err := normalizeGroupName(*sd.AutoFollowBackAspect)
		if err != nil {
			d.errs = append(d.errs, &models.FieldError{Field: "auto_follow_back_aspect", Err: err})
		} else {
			d.aspect = name
			d.aspectSet = true
		}
	}

	return d
}

// settingsWriter is the part of ImportStore that persists settings.
type settingsWriter interface {
	FindOrCreateContactGroup(ctx context.Context, accountID uuid.UUID, name string, chatEnabled bool) (*models.ContactGroup, bool, error)
	UpdateSettings(ctx context.Context, accountID uuid.UUID, patch models.SettingsPatch) error
}

// settingsOutcome reports what applySettings wrote.
type settingsOutcome struct {
	fields       int
	groupCreated bool
	errs         []error
}

// applySettings merges the archived settings into acct and persists them,
// creating the auto-follow-back group when it does not exist yet. Rejected
// fields are returned in errs; only storage failures are errors.
func applySettings(ctx context.Context, st settingsWriter, acct *models.Account, archive *models.Archive) (settingsOutcome, error) {
	delta := mergeSettings(archive.Settings())
	out := settingsOutcome{errs: delta.errs}

	if delta.aspectSet {
		chat := chatEnabledFor(archive.User.ContactGroups, delta.aspect)

		group, created, err := st.FindOrCreateContactGroup(ctx, acct.ID, delta.aspect, chat)
		if err != nil {
			return out, fmt.Errorf("resolving auto-follow-back group %q: %w", delta.aspect, err)
		}

		out.groupCreated = created
		delta.patch.AutoFollowBackGroupID = &group.ID
		delta.fields++
	}

	if delta.patch.Empty() {
		return out, nil
	}

	if err := st.UpdateSettings(ctx, acct.ID, delta.patch); err != nil {
		return out, fmt.Errorf("updating settings of %q: %w", acct.Username, err)
	}

	delta.patch.Apply(&acct.Settings)
	out.fields = delta.fields

	return out, nil
}

// chatEnabledFor reports the archived chat flag of the named group.
func chatEnabledFor(groups []models.ContactGroupData, name string) bool {
	for _, g := range groups {
		if strings.TrimSpace(g.Name) == name && g.ChatEnabled != nil {
			return *g.ChatEnabled
		}
	}

	return false
}

// normalizeLanguage checks that s is a well-formed locale tag and returns its
// canonical form.
func normalizeLanguage(s string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: language %q: %w", models.ErrInvalidValue, s, err)
	}

	return tag.String(), nil
}

func normalizeGroupName(s string) (string, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", fmt.Errorf("%w: empty contact group name", models.ErrInvalidValue)
	}

	if len(name) > maxGroupNameLen {
		return "", models.ErrFieldTooLong("contact group name", maxGroupNameLen)
	}

	return name, nil
}
