package service

import (
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/persistorai/podrestore/internal/models"
)

// Profile field limits.
const (
	maxNameLen     = 32
	maxFullNameLen = 70
	maxBioLen      = 4096
	maxLocationLen = 255
	maxGenderLen   = 255
	maxURLLen      = 2048
)

// profileDelta is the validated result of merging archived entity data.
type profileDelta struct {
	patch  models.ProfilePatch
	fields int
	errs   []error
}

// mergeProfile turns archived entity data into a patch over current. Present
// fields overwrite; absent fields are left out; invalid fields are left out
// and reported. full_name is derived from the resulting first and last name
// when the archive does not carry one.
func mergeProfile(ed *models.EntityData, current models.Profile) profileDelta {
	var d profileDelta

	d.patch.FirstName = d.text("first_name", ed.FirstName, maxNameLen)
	d.patch.LastName = d.text("last_name", ed.LastName, maxNameLen)
	d.patch.Bio = d.text("bio", ed.Bio, maxBioLen)
	d.patch.Gender = d.text("gender", ed.Gender, maxGenderLen)
	d.patch.Location = d.text("location", ed.Location, maxLocationLen)
	d.patch.TagString = d.text("tag_string", ed.TagString, maxBioLen)
	d.patch.ImageURL = d.imageURL("image_url", ed.ImageURL)
	d.patch.ImageURLSmall = d.imageURL("image_url_small", ed.ImageURLSmall)
	d.patch.ImageURLMedium = d.imageURL("image_url_medium", ed.ImageURLMedium)
	d.patch.Searchable = d.flag(ed.Searchable)
	d.patch.PublicDetails = d.flag(ed.Public)
	d.patch.NSFW = d.flag(ed.NSFW)

	if ed.Birthday != nil {
		b, err := models.ParseBirthday(*ed.Birthday)
		if err != nil {
			d.reject("birthday", err)
		} else {
			d.patch.Birthday = &b
			d.fields++
		}
	}

	switch {
	case ed.FullName != nil:
		d.patch.FullName = d.text("full_name", ed.FullName, maxFullNameLen)
	case d.patch.FirstName != nil || d.patch.LastName != nil:
		first, last := current.FirstName, current.LastName
		if d.patch.FirstName != nil {
			first = *d.patch.FirstName
		}

		if d.patch.LastName != nil {
			last = *d.patch.LastName
		}

		full := models.DeriveFullName(first, last)
		d.patch.FullName = &full
	}

	return d
}

func (d *profileDelta) text(field string, v *string, maxLen int) *string {
	if v == nil {
		return nil
	}

	if utf8.RuneCountInString(*v) > maxLen {
		d.reject(field, models.ErrFieldTooLong(field, maxLen))
		return nil
	}

	d.fields++

	return v
}

func (d *profileDelta) imageURL(field string, v *string) *string {
	if v == nil {
		return nil
	}

	// An empty string clears the image.
	if *v == "" {
		d.fields++
		return v
	}

	if len(*v) > maxURLLen {
		d.reject(field, models.ErrFieldTooLong(field, maxURLLen))
		return nil
	}

	u, err := url.Parse(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		d.reject(field, fmt.Errorf("%w: %q is not an absolute http(s) URL", models.ErrInvalidValue, *v))
		return nil
	}

	d.fields++

	return v
}

func (d *profileDelta) flag(v *bool) *bool {
	if v != nil {
		d.fields++
	}

	return v
}

func (d *profileDelta) reject(field string, err error) {
	d.errs = append(d.errs, &models.FieldError{Field: field, Err: err})
}
