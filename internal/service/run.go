package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/metrics"
	"github.com/persistorai/podrestore/internal/models"
)

// importRun is the state of one import into one account. Its step methods
// run sequentially on one goroutine; only remote lookups fan out.
type importRun struct {
	*ArchiveImporter

	// ctx carries caller cancellation and is used for local writes.
	ctx context.Context
	// budget additionally carries the run deadline and bounds remote work.
	budget context.Context

	account *models.Account
	archive *models.Archive
	opts    models.ImportOptions
	result  *models.ImportResult
}

func (r *importRun) execute() error {
	r.rejectFields(r.archive.FieldErrors())
	r.resolveAuthor()

	if r.opts.ImportProfile {
		r.stage("profile")

		if err := r.applyProfile(); err != nil {
			return err
		}
	}

	if r.opts.ImportSettings {
		r.stage("settings")

		if err := r.applySettings(); err != nil {
			return err
		}
	}

	r.stage("contact_groups")

	if err := r.importContactGroups(); err != nil {
		return err
	}

	r.stage("tags")

	if err := r.followTags(); err != nil {
		return err
	}

	r.stage("contacts")

	if err := r.importContacts(); err != nil {
		return err
	}

	r.stage("subscriptions")

	return r.importSubscriptions()
}

// resolveAuthor looks up the archive's originating identity. Failure only
// leaves a warning.
func (r *importRun) resolveAuthor() {
	handle := r.archive.AuthorHandle()

	ctx, cancel := context.WithTimeout(r.budget, r.cfg.LookupTimeout)
	defer cancel()

	found := r.locator.LocatePerson(ctx, handle)
	if _, ok := found.Get(); !ok {
		r.skip("author", handle, found.Reason())
	}
}

func (r *importRun) applyProfile() error {
	delta := mergeProfile(r.archive.EntityData(), r.account.Profile)
	r.rejectFields(delta.errs)

	if delta.patch.Empty() {
		return nil
	}

	if err := r.store.UpdateProfile(r.ctx, r.account.ID, delta.patch); err != nil {
		return fmt.Errorf("updating profile of %q: %w", r.account.Username, err)
	}

	delta.patch.Apply(&r.account.Profile)
	r.result.ProfileFields = delta.fields

	return nil
}

func (r *importRun) applySettings() error {
	out, err := applySettings(r.ctx, r.store, r.account, r.archive)
	r.rejectFields(out.errs)

	if err != nil {
		return err
	}

	if out.groupCreated {
		r.result.ContactGroupsCreated++
		r.created("contact_group")
	}

	r.result.SettingsFields = out.fields

	return nil
}

func (r *importRun) importContactGroups() error {
	for _, g := range r.archive.User.ContactGroups {
		name, err := normalizeGroupName(g.Name)
		if err != nil {
			r.skip("contact_group", g.Name, err)
			continue
		}

		chat := g.ChatEnabled != nil && *g.ChatEnabled

		_, created, err := r.store.FindOrCreateContactGroup(r.ctx, r.account.ID, name, chat)
		if err != nil {
			return fmt.Errorf("creating contact group %q: %w", name, err)
		}

		if created {
			r.result.ContactGroupsCreated++
			r.created("contact_group")
		}
	}

	return nil
}

func (r *importRun) followTags() error {
	for _, name := range dedupe(r.archive.User.FollowedTags) {
		tag, err := r.locator.LocateTag(r.ctx, name)
		if errors.Is(err, models.ErrInvalidTagName) {
			r.skip("tag", name, err)
			continue
		}

		if err != nil {
			return err
		}

		created, err := r.store.FollowTag(r.ctx, r.account.ID, tag.ID)
		if err != nil {
			return fmt.Errorf("following tag %q: %w", tag.Name, err)
		}

		if created {
			r.result.TagsFollowed++
			r.created("tag_following")
		}
	}

	return nil
}

func (r *importRun) importContacts() error {
	byKey := make(map[string]models.ContactData, len(r.archive.User.Contacts))
	for _, c := range r.archive.User.Contacts {
		key := strings.TrimSpace(c.AccountID)
		if _, dup := byKey[key]; !dup {
			byKey[key] = c
		}
	}

	return resolveAll(r.budget, r.cfg.Workers, r.cfg.LookupTimeout,
		dedupe(contactKeys(r.archive.User.Contacts)),
		r.locator.LocatePerson,
		func(res resolved[*models.Person]) error {
			person, ok := res.lookup.Get()
			if !ok {
				r.skip("contact", res.key, res.lookup.Reason())
				return nil
			}

			return r.addContact(person, byKey[res.key])
		},
	)
}

func (r *importRun) addContact(person *models.Person, data models.ContactData) error {
	sharing := data.Following == nil || *data.Following
	receiving := data.Sharing == nil || *data.Sharing

	contact, created, err := r.store.AddContact(r.ctx, r.account.ID, person.ID, sharing, receiving)
	if err != nil {
		return fmt.Errorf("adding contact %q: %w", person.Handle, err)
	}

	if created {
		r.result.ContactsCreated++
		r.created("contact")
	}

	for _, g := range data.Groups {
		name, err := normalizeGroupName(g)
		if err != nil {
			r.skip("membership", person.Handle+" in "+g, err)
			continue
		}

		group, groupCreated, err := r.store.FindOrCreateContactGroup(r.ctx, r.account.ID, name, false)
		if err != nil {
			return fmt.Errorf("resolving contact group %q: %w", name, err)
		}

		if groupCreated {
			r.result.ContactGroupsCreated++
			r.created("contact_group")
		}

		if _, err := r.store.AddMembership(r.ctx, contact.ID, group.ID); err != nil {
			return fmt.Errorf("adding %q to group %q: %w", person.Handle, name, err)
		}
	}

	return nil
}

func (r *importRun) importSubscriptions() error {
	hint := r.archive.AuthorHandle()

	return resolveAll(r.budget, r.cfg.Workers, r.cfg.LookupTimeout,
		dedupe(r.archive.User.PostSubscriptions),
		func(ctx context.Context, guid string) models.Lookup[*models.Content] {
			return r.locator.LocateContent(ctx, guid, hint)
		},
		func(res resolved[*models.Content]) error {
			content, ok := res.lookup.Get()
			if !ok {
				r.skip("subscription", res.key, res.lookup.Reason())
				return nil
			}

			created, err := r.store.Participate(r.ctx, r.account.ID, content.ID)
			if err != nil {
				return fmt.Errorf("subscribing to %s: %w", content.GUID, err)
			}

			if created {
				r.result.SubscriptionsCreated++
				r.created("participation")
			}

			return nil
		},
	)
}

// skip records an archive item that could not be applied.
func (r *importRun) skip(kind, ref string, reason error) {
	r.result.Warn("%s %q skipped: %v", kind, ref, reason)
	metrics.ItemsSkippedTotal.WithLabelValues(kind).Inc()

	r.log.WithFields(logrus.Fields{
		"account": r.account.Username,
		"kind":    kind,
		"ref":     ref,
	}).WithError(reason).Info("archive item skipped")

	publish(r.events, r.log, EventItemSkipped, r.account.Username, map[string]any{
		"run_id": r.result.RunID, "kind": kind, "ref": ref, "reason": fmt.Sprint(reason),
	})
}

func (r *importRun) rejectFields(errs []error) {
	for _, e := range errs {
		var fe *models.FieldError
		if errors.As(e, &fe) {
			r.skip("field", fe.Field, fe.Err)
			continue
		}

		r.skip("field", "", e)
	}
}

func (r *importRun) created(kind string) {
	metrics.EdgesCreatedTotal.WithLabelValues(kind).Inc()
}

func (r *importRun) stage(name string) {
	publish(r.events, r.log, EventImportStage, r.account.Username, map[string]any{
		"run_id": r.result.RunID, "stage": name,
	})
}

func contactKeys(contacts []models.ContactData) []string {
	keys := make([]string, 0, len(contacts))
	for _, c := range contacts {
		keys = append(keys, strings.TrimSpace(c.AccountID))
	}

	return keys
}
