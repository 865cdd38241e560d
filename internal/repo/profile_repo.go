package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prepdesk/server/internal/errcode"
	"github.com/prepdesk/server/internal/model"
	"github.com/prepdesk/server/internal/store"
)

const profileCollection = "users"

// ProfileRepo defines read/write access to a single profile document per
// identity id
type ProfileRepo interface {
	Get(ctx context.Context, identityID string) (model.Profile, error)
	Save(ctx context.Context, identityID string, profile model.Profile) error
	Update(ctx context.Context, identityID string, update model.ProfileUpdate) error
}

type profileRepo struct {
	store store.DocumentStore
}

// NewProfileRepo creates a new ProfileRepo instance
func NewProfileRepo(s store.DocumentStore) ProfileRepo {
	return &profileRepo{store: s}
}

// Get retrieves a profile by identity id. A missing profile is a typed
// not-found failure, never a raw store error.
func (r *profileRepo) Get(ctx context.Context, identityID string) (model.Profile, error) {
	doc, err := r.store.Get(ctx, profilePath(identityID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Profile{}, errcode.NewDataError("not-found", err.Error())
		}
		return model.Profile{}, errcode.NewDataError("unavailable", err.Error())
	}

	profile, err := profileFromDoc(doc)
	if err != nil {
		return model.Profile{}, errcode.NewDataError("failed-precondition", err.Error())
	}
	return profile, nil
}

// Save writes the full profile, stamping creation and update timestamps and
// forcing the profile-complete flag.
func (r *profileRepo) Save(ctx context.Context, identityID string, profile model.Profile) error {
	fields, err := profileToFields(profile)
	if err != nil {
		return errcode.NewDataError("failed-precondition", err.Error())
	}
	fields["userId"] = identityID
	fields["isProfileComplete"] = true
	fields["createdAt"] = store.ServerTimestamp
	fields["updatedAt"] = store.ServerTimestamp

	if err := r.store.Set(ctx, profilePath(identityID), fields); err != nil {
		return errcode.NewDataError("unavailable", err.Error())
	}
	return nil
}

// Update merges the provided fields and stamps only the update timestamp.
// The update struct has no profile-complete field, so a complete profile
// can never be marked incomplete here.
func (r *profileRepo) Update(ctx context.Context, identityID string, update model.ProfileUpdate) error {
	fields, err := updateToFields(update)
	if err != nil {
		return errcode.NewDataError("failed-precondition", err.Error())
	}
	fields["updatedAt"] = store.ServerTimestamp

	if err := r.store.Update(ctx, profilePath(identityID), fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errcode.NewDataError("not-found", err.Error())
		}
		return errcode.NewDataError("unavailable", err.Error())
	}
	return nil
}

func profilePath(identityID string) string {
	return profileCollection + "/" + identityID
}

// profileToFields flattens a profile into document fields via its JSON form.
func profileToFields(profile model.Profile) (map[string]interface{}, error) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal profile fields: %w", err)
	}
	return fields, nil
}

// updateToFields keeps only the fields the caller actually set.
func updateToFields(update model.ProfileUpdate) (map[string]interface{}, error) {
	raw, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("marshal profile update: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal update fields: %w", err)
	}
	return fields, nil
}

func profileFromDoc(doc store.Document) (model.Profile, error) {
	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return model.Profile{}, fmt.Errorf("marshal document fields: %w", err)
	}
	var profile model.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return model.Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	if profile.UserID == "" {
		profile.UserID = doc.ID
	}
	return profile, nil
}
