package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auctionhouse/internal/model"
)

// ReconcileReport counts the repairs made by a reconciliation pass.
type ReconcileReport struct {
	Created int
	Adopted int
	Renamed int
	Deleted int
}

// Repairs is the total number of changes made.
func (r *ReconcileReport) Repairs() int {
	return r.Created + r.Adopted + r.Renamed + r.Deleted
}

type adoption struct {
	profile model.Profile
	key     uint64
}

type renaming struct {
	profile model.Profile
	to      string
}

// reconcilePlan lists the repairs that bring the profiles in line with the identities.
type reconcilePlan struct {
	adopt  []adoption
	rename []renaming
	remove []model.Profile
	create []model.Identity
}

func (p reconcilePlan) report() *ReconcileReport {
	return &ReconcileReport{
		Created: len(p.create),
		Adopted: len(p.adopt),
		Renamed: len(p.rename),
		Deleted: len(p.remove),
	}
}

// planReconcile pairs identities with profiles. The external key wins; a
// profile is matched by username only when its own key belongs to no
// identity. Unpaired profiles are removed and unpaired identities created.
func planReconcile(identities []model.Identity, profiles []model.Profile) reconcilePlan {
	ids := append([]model.Identity(nil), identities...)
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key < ids[j].Key })

	known := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		known[id.Key] = true
	}
	byKey := make(map[uint64]model.Profile, len(profiles))
	byName := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byKey[p.UserKey] = p
		byName[p.Username] = p
	}

	var plan reconcilePlan
	matched := make(map[uuid.UUID]bool, len(profiles))
	var unkeyed []model.Identity
	for _, id := range ids {
		p, ok := byKey[id.Key]
		if !ok {
			unkeyed = append(unkeyed, id)
			continue
		}
		matched[p.ID] = true
		if p.Username != id.Username {
			plan.rename = append(plan.rename, renaming{profile: p, to: id.Username})
		}
	}
	for _, id := range unkeyed {
		p, ok := byName[id.Username]
		if ok && !known[p.UserKey] && !matched[p.ID] {
			matched[p.ID] = true
			plan.adopt = append(plan.adopt, adoption{profile: p, key: id.Key})
			continue
		}
		plan.create = append(plan.create, id)
	}

	for _, p := range profiles {
		if !matched[p.ID] {
			plan.remove = append(plan.remove, p)
		}
	}
	sort.Slice(plan.remove, func(i, j int) bool { return plan.remove[i].UserKey < plan.remove[j].UserKey })
	return plan
}

func (s *profileService) Reconcile(ctx context.Context, identities []model.Identity) (*ReconcileReport, error) {
	var plan reconcilePlan
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		profiles, err := u.tx.Profiles().List(ctx)
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		plan = planReconcile(identities, profiles)
		return u.applyReconcile(ctx, plan)
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile profiles: %w", err)
	}

	for _, p := range plan.remove {
		s.log.WithFields(logrus.Fields{"profile": p.ID, "username": p.Username, "user_key": p.UserKey}).
			Error("profile without identity deleted")
	}
	for _, a := range plan.adopt {
		s.log.WithFields(logrus.Fields{"profile": a.profile.ID, "username": a.profile.Username,
			"old_user_key": a.profile.UserKey, "user_key": a.key}).
			Error("profile adopted by username")
	}
	for _, r := range plan.rename {
		s.log.WithFields(logrus.Fields{"profile": r.profile.ID, "old_username": r.profile.Username, "username": r.to}).
			Error("profile username out of sync, renamed")
	}
	for _, id := range plan.create {
		s.log.WithFields(logrus.Fields{"username": id.Username, "user_key": id.Key}).
			Error("identity without profile, profile created")
	}

	report := plan.report()
	s.log.WithFields(logrus.Fields{
		"created": report.Created,
		"adopted": report.Adopted,
		"renamed": report.Renamed,
		"deleted": report.Deleted,
	}).Info("profiles reconciled")
	return report, nil
}

// applyReconcile runs a plan. Removals go first so their usernames are free,
// and renames pass through a temporary name so two profiles can swap.
func (u *unit) applyReconcile(ctx context.Context, plan reconcilePlan) error {
	for i := range plan.remove {
		if err := u.deleteProfile(ctx, &plan.remove[i]); err != nil {
			return err
		}
	}
	for _, a := range plan.adopt {
		if err := u.tx.Profiles().SetUserKey(ctx, a.profile.ID, a.key); err != nil {
			return fmt.Errorf("adopt profile %s: %w", a.profile.Username, err)
		}
		u.touchProfile(a.profile.ID)
	}
	for _, r := range plan.rename {
		if err := u.tx.Profiles().Rename(ctx, r.profile.ID, "~reconcile-"+r.profile.ID.String()); err != nil {
			return fmt.Errorf("rename profile %s: %w", r.profile.Username, err)
		}
	}
	for _, r := range plan.rename {
		if err := u.tx.Profiles().Rename(ctx, r.profile.ID, r.to); err != nil {
			return fmt.Errorf("rename profile %s: %w", r.profile.Username, err)
		}
		u.touchProfile(r.profile.ID)
	}
	for _, id := range plan.create {
		if _, err := u.createProfile(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
