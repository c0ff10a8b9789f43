package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/apperr"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/metrics"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/occupancy"
)

// AssetRemover deletes stored profile assets by reference
type AssetRemover interface {
	Delete(ctx context.Context, ref string) error
}

// MemberStore owns member records. Writes that consume room capacity are
// serialized per room and re-check occupancy right before persisting.
type MemberStore struct {
	repo     Repository
	resolver *occupancy.Resolver
	locker   RoomLocker
	assets   AssetRemover
	validate *validator.Validate
	log      *logrus.Entry
	now      func() time.Time
}

// NewMemberStore creates a member store. assets may be nil.
func NewMemberStore(repo Repository, resolver *occupancy.Resolver, locker RoomLocker, assets AssetRemover, log *logrus.Entry) *MemberStore {
	if locker == nil {
		locker = NewLocalRoomLocker()
	}
	return &MemberStore{
		repo:     repo,
		resolver: resolver,
		locker:   locker,
		assets:   assets,
		validate: newValidator(),
		log:      log.WithField("component", "member-store"),
		now:      time.Now,
	}
}

// Resolver returns the occupancy resolver the store checks against
func (s *MemberStore) Resolver() *occupancy.Resolver {
	return s.resolver
}

// Create validates in, checks the target room under its lock and persists
// a new active member
func (s *MemberStore) Create(ctx context.Context, in CreateInput) (*models.Member, error) {
	if err := checkStruct(s.validate, in); err != nil {
		return nil, err
	}

	inv := s.resolver.Inventory()
	shareType, err := inventory.ParseShareType(string(in.RoomType))
	if err != nil {
		return nil, err
	}
	floor, ok := inv.FloorOf(in.RoomNumber)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnknownRoom, in.RoomNumber)
	}

	email := normalizeEmail(in.Email)
	if err := s.checkIdentity(ctx, uuid.Nil, in.PhoneNumber, email, true, true); err != nil {
		return nil, err
	}

	now := s.now()
	member := &models.Member{
		ID:            uuid.New(),
		FullName:      strings.TrimSpace(in.FullName),
		Gender:        in.Gender,
		Age:           in.Age,
		PhoneNumber:   in.PhoneNumber,
		Email:         email,
		ParentsNumber: in.ParentsNumber,
		Address:       in.Address,
		Occupation:    in.Occupation,
		Amount:        in.Amount,
		ProfileAsset:  in.ProfileAsset,
		Status:        models.MemberStatusActive,
		JoiningDate:   now,
		RoomNumber:    in.RoomNumber,
		FloorNumber:   floor,
		RoomType:      shareType,
		Payments:      models.Ledger{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.JoiningDate != nil && !in.JoiningDate.IsZero() {
		member.JoiningDate = *in.JoiningDate
	}

	unlock, err := s.locker.Lock(ctx, member.RoomNumber)
	if err != nil {
		return nil, apperr.Storage("lock room", err)
	}
	defer unlock()

	if err := s.checkCapacity(ctx, member, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, member); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"member_id": member.ID,
		"room":      member.RoomNumber,
		"room_type": member.RoomType,
	}).Info("Member created")
	return member, nil
}

// Update applies patch to the member. Occupancy is re-checked only when the
// change consumes capacity: a new room, a new sharing type or reactivation.
func (s *MemberStore) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*models.Member, error) {
	if err := checkStruct(s.validate, patch); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := s.applyPatch(next, patch); err != nil {
		return nil, err
	}

	phoneChanged := next.PhoneNumber != current.PhoneNumber
	emailChanged := next.Email != current.Email
	if phoneChanged || emailChanged {
		if err := s.checkIdentity(ctx, id, next.PhoneNumber, next.Email, phoneChanged, emailChanged); err != nil {
			return nil, err
		}
	}

	consumes := next.IsActive() &&
		(next.RoomNumber != current.RoomNumber || next.RoomType != current.RoomType || !current.IsActive())
	if consumes {
		unlock, err := s.locker.Lock(ctx, next.RoomNumber)
		if err != nil {
			return nil, apperr.Storage("lock room", err)
		}
		defer unlock()

		if err := s.checkCapacity(ctx, next, id); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateByID(ctx, next, current.Version); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"member_id": id,
		"room":      next.RoomNumber,
		"status":    next.Status,
	}).Info("Member updated")
	return next, nil
}

func (s *MemberStore) applyPatch(m *models.Member, p UpdatePatch) error {
	if p.FullName != nil {
		m.FullName = strings.TrimSpace(*p.FullName)
	}
	if p.Gender != nil {
		m.Gender = *p.Gender
	}
	if p.Age != nil {
		m.Age = *p.Age
	}
	if p.PhoneNumber != nil {
		m.PhoneNumber = *p.PhoneNumber
	}
	if p.Email != nil {
		m.Email = normalizeEmail(*p.Email)
	}
	if p.ParentsNumber != nil {
		m.ParentsNumber = *p.ParentsNumber
	}
	if p.Address != nil {
		m.Address = *p.Address
	}
	if p.Occupation != nil {
		m.Occupation = *p.Occupation
	}
	if p.Amount != nil {
		m.Amount = *p.Amount
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if p.JoiningDate != nil {
		m.JoiningDate = *p.JoiningDate
	}
	if p.ProfileAsset != nil {
		m.ProfileAsset = *p.ProfileAsset
	}
	if p.RoomType != nil {
		t, err := inventory.ParseShareType(string(*p.RoomType))
		if err != nil {
			return err
		}
		m.RoomType = t
	}
	if p.RoomNumber != nil {
		floor, ok := s.resolver.Inventory().FloorOf(*p.RoomNumber)
		if !ok {
			return fmt.Errorf("%w: %s", apperr.ErrUnknownRoom, *p.RoomNumber)
		}
		m.RoomNumber = *p.RoomNumber
		m.FloorNumber = floor
	}
	return nil
}

// checkIdentity rejects phone or email values held by another member,
// active or not
func (s *MemberStore) checkIdentity(ctx context.Context, self uuid.UUID, phone, email string, checkPhone, checkEmail bool) error {
	lookupPhone, lookupEmail := phone, email
	if !checkPhone {
		lookupPhone = ""
	}
	if !checkEmail {
		lookupEmail = ""
	}
	existing, err := s.repo.FindByPhoneOrEmail(ctx, lookupPhone, lookupEmail)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == self {
			continue
		}
		if checkPhone && other.PhoneNumber == phone {
			return apperr.ErrDuplicatePhone
		}
		if checkEmail && strings.EqualFold(other.Email, email) {
			return apperr.ErrDuplicateEmail
		}
	}
	return nil
}

// checkCapacity recomputes occupancy without the member being written and
// asks the resolver whether m fits. Must be called with m's room locked.
func (s *MemberStore) checkCapacity(ctx context.Context, m *models.Member, exclude uuid.UUID) error {
	active, err := s.repo.FindActive(ctx)
	if err != nil {
		return err
	}
	others := active[:0]
	for _, a := range active {
		if a.ID != exclude {
			others = append(others, a)
		}
	}

	snap := s.resolver.Compute(others)
	decision := s.resolver.CanAssign(m.RoomNumber, m.RoomType, snap)
	if !decision.OK {
		metrics.Assignment(string(decision.Reason))
		return decision.Err(m.RoomNumber, m.RoomType)
	}
	metrics.Assignment("accepted")
	return nil
}

// Remove deletes the member and asks the asset store to drop its profile
// image. A failed asset delete is logged, the member stays deleted.
func (s *MemberStore) Remove(ctx context.Context, id uuid.UUID) error {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	if member.ProfileAsset != "" && s.assets != nil {
		if err := s.assets.Delete(ctx, member.ProfileAsset); err != nil {
			s.log.WithError(err).WithField("asset", member.ProfileAsset).Warn("Failed to delete profile asset")
		}
	}
	s.log.WithField("member_id", id).Info("Member removed")
	return nil
}

// Get returns one member
func (s *MemberStore) Get(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.repo.FindByID(ctx, id)
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status models.MemberStatus
	Gender models.Gender
	Floor  inventory.Floor
	// Query matches name, phone, email or room as a case-insensitive substring
	Query string
}

// Match reports whether m passes every set predicate
func (f ListFilter) Match(m *models.Member) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Gender != "" && m.Gender != f.Gender {
		return false
	}
	if f.Floor != "" && m.FloorNumber != f.Floor {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{m.FullName, m.PhoneNumber, m.Email, m.RoomNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// List returns members newest first, filtered by f
func (s *MemberStore) List(ctx context.Context, f ListFilter) ([]models.Member, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(all))
	for i := range all {
		if f.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Snapshot computes occupancy from the current active members
func (s *MemberStore) Snapshot(ctx context.Context) (*occupancy.Snapshot, error) {
	active, err := s.repo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolver.Compute(active), nil
}

// AvailableRooms lists rooms on floor that can take one more member of t
func (s *MemberStore) AvailableRooms(ctx context.Context, floor inventory.Floor, t inventory.ShareType) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolver.AvailableRoomsFor(floor, t, snap)
}
