package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/internal/repository"
	apperrors "github.com/regsalud/reps-sync/pkg/errors"
)

// In-memory repositories backing the orchestrator tests. They mirror the
// SQL layer's contract: natural-key uniqueness spans tombstones, lookups
// see active records only, Create assigns missing ids.

type fakeFacilityRepo struct {
	mu         sync.Mutex
	facilities map[uuid.UUID]*model.FacilityLocation
	createErr  error
}

func newFakeFacilityRepo() *fakeFacilityRepo {
	return &fakeFacilityRepo{facilities: make(map[uuid.UUID]*model.FacilityLocation)}
}

func (r *fakeFacilityRepo) Create(_ context.Context, f *model.FacilityLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	for _, existing := range r.facilities {
		if existing.OrganizationID == f.OrganizationID &&
			existing.RegistryCode == f.RegistryCode &&
			existing.SedeNumber == f.SedeNumber {
			return errors.New("duplicate natural key")
		}
	}
	cp := *f
	r.facilities[f.ID] = &cp
	return nil
}

func (r *fakeFacilityRepo) Update(_ context.Context, f *model.FacilityLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.facilities[f.ID]; !ok {
		return apperrors.NewNotFound("facility", nil)
	}
	cp := *f
	r.facilities[f.ID] = &cp
	return nil
}

func (r *fakeFacilityRepo) Get(_ context.Context, id uuid.UUID) (*model.FacilityLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facilities[id]
	if !ok || f.IsDeleted() {
		return nil, apperrors.NewNotFound("facility", nil)
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFacilityRepo) GetByNaturalKey(_ context.Context, orgID uuid.UUID, key model.NaturalKey) (*model.FacilityLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.facilities {
		if f.OrganizationID == orgID && !f.IsDeleted() &&
			f.RegistryCode == key.RegistryCode && f.SedeNumber == key.SedeNumber {
			cp := *f
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("facility", nil)
}

func (r *fakeFacilityRepo) FindByNameAddress(_ context.Context, orgID uuid.UUID, name, address string) (*model.FacilityLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.facilities {
		if f.OrganizationID == orgID && !f.IsDeleted() &&
			f.Name == name && f.Address == address {
			cp := *f
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("facility", nil)
}

func (r *fakeFacilityRepo) ListActive(_ context.Context, orgID uuid.UUID) ([]*model.FacilityLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.FacilityLocation
	for _, f := range r.facilities {
		if f.OrganizationID == orgID && !f.IsDeleted() {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFacilityRepo) ListAll(_ context.Context, orgID uuid.UUID) ([]*model.FacilityLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.FacilityLocation
	for _, f := range r.facilities {
		if f.OrganizationID == orgID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFacilityRepo) CountActive(ctx context.Context, orgID uuid.UUID) (int, error) {
	active, _ := r.ListActive(ctx, orgID)
	return len(active), nil
}

func (r *fakeFacilityRepo) HasMainFacility(_ context.Context, orgID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.facilities {
		if f.OrganizationID == orgID && !f.IsDeleted() && f.IsMainFacility {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFacilityRepo) SoftDelete(_ context.Context, id uuid.UUID, deletedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facilities[id]
	if !ok {
		return apperrors.NewNotFound("facility", nil)
	}
	now := time.Now()
	f.DeletedAt = &now
	f.UpdatedBy = deletedBy
	return nil
}

func (r *fakeFacilityRepo) PurgeTombstonedByKeys(_ context.Context, orgID uuid.UUID, keys []model.NaturalKey) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keySet := make(map[model.NaturalKey]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	purged := 0
	for id, f := range r.facilities {
		if f.OrganizationID != orgID || !f.IsDeleted() {
			continue
		}
		if _, hit := keySet[f.NaturalKey()]; hit {
			delete(r.facilities, id)
			purged++
		}
	}
	return purged, nil
}

func (r *fakeFacilityRepo) DeleteAll(_ context.Context, orgID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, f := range r.facilities {
		if f.OrganizationID == orgID {
			delete(r.facilities, id)
		}
	}
	return nil
}

type fakeServiceRepo struct {
	mu         sync.Mutex
	services   map[uuid.UUID]*model.EnabledService
	facilities *fakeFacilityRepo

	// forcedOrphans, when set, overrides the computed orphan count.
	forcedOrphans *int
}

func newFakeServiceRepo(facilities *fakeFacilityRepo) *fakeServiceRepo {
	return &fakeServiceRepo{
		services:   make(map[uuid.UUID]*model.EnabledService),
		facilities: facilities,
	}
}

func (r *fakeServiceRepo) Create(_ context.Context, s *model.EnabledService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.services[s.ID] = &cp
	return nil
}

func (r *fakeServiceRepo) Update(_ context.Context, s *model.EnabledService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[s.ID]; !ok {
		return apperrors.NewNotFound("enabled service", nil)
	}
	cp := *s
	r.services[s.ID] = &cp
	return nil
}

func (r *fakeServiceRepo) GetByCode(_ context.Context, facilityID uuid.UUID, serviceCode string) (*model.EnabledService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.services {
		if s.FacilityID == facilityID && !s.IsDeleted() && s.ServiceCode == serviceCode {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("enabled service", nil)
}

func (r *fakeServiceRepo) ListActive(_ context.Context, orgID uuid.UUID) ([]*model.EnabledService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.EnabledService
	for _, s := range r.services {
		if s.OrganizationID == orgID && !s.IsDeleted() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) ListAll(_ context.Context, orgID uuid.UUID) ([]*model.EnabledService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.EnabledService
	for _, s := range r.services {
		if s.OrganizationID == orgID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) CountActive(ctx context.Context, orgID uuid.UUID) (int, error) {
	active, _ := r.ListActive(ctx, orgID)
	return len(active), nil
}

func (r *fakeServiceRepo) CountOrphans(ctx context.Context, orgID uuid.UUID) (int, error) {
	r.mu.Lock()
	forced := r.forcedOrphans
	r.mu.Unlock()
	if forced != nil {
		return *forced, nil
	}

	active, _ := r.ListActive(ctx, orgID)
	orphans := 0
	for _, s := range active {
		parent, err := r.facilities.Get(ctx, s.FacilityID)
		if err != nil || parent.OrganizationID != s.OrganizationID {
			orphans++
		}
	}
	return orphans, nil
}

func (r *fakeServiceRepo) PurgeTombstonedByKeys(ctx context.Context, orgID uuid.UUID, keys []repository.ServiceKey) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, s := range r.services {
		if s.OrganizationID != orgID || !s.IsDeleted() {
			continue
		}
		parent := r.facilities.facilityByID(s.FacilityID)
		if parent == nil {
			continue
		}
		for _, k := range keys {
			if parent.RegistryCode == k.RegistryCode &&
				parent.SedeNumber == k.SedeNumber &&
				s.ServiceCode == k.ServiceCode {
				delete(r.services, id)
				purged++
				break
			}
		}
	}
	return purged, nil
}

func (r *fakeServiceRepo) DeleteAll(_ context.Context, orgID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.services {
		if s.OrganizationID == orgID {
			delete(r.services, id)
		}
	}
	return nil
}

// facilityByID looks up a facility regardless of tombstone state.
func (r *fakeFacilityRepo) facilityByID(id uuid.UUID) *model.FacilityLocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.facilities[id]
}

type fakeBackupRepo struct {
	mu         sync.Mutex
	snapshots  map[uuid.UUID]*model.BackupSnapshot
	facilities *fakeFacilityRepo
	services   *fakeServiceRepo

	restoreErr error
}

func newFakeBackupRepo(facilities *fakeFacilityRepo, services *fakeServiceRepo) *fakeBackupRepo {
	return &fakeBackupRepo{
		snapshots:  make(map[uuid.UUID]*model.BackupSnapshot),
		facilities: facilities,
		services:   services,
	}
}

func (r *fakeBackupRepo) Create(_ context.Context, snapshot *model.BackupSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *snapshot
	r.snapshots[snapshot.ID] = &cp
	return nil
}

func (r *fakeBackupRepo) Get(_ context.Context, id uuid.UUID) (*model.BackupSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.snapshots[id]
	if !ok {
		return nil, apperrors.NewNotFound("backup snapshot", nil)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeBackupRepo) RestoreEntities(ctx context.Context, orgID uuid.UUID, payload *model.BackupPayload) error {
	if r.restoreErr != nil {
		return r.restoreErr
	}
	if err := r.services.DeleteAll(ctx, orgID); err != nil {
		return err
	}
	if err := r.facilities.DeleteAll(ctx, orgID); err != nil {
		return err
	}
	for _, f := range payload.Facilities {
		cp := *f
		r.facilities.mu.Lock()
		r.facilities.facilities[cp.ID] = &cp
		r.facilities.mu.Unlock()
	}
	for _, s := range payload.Services {
		cp := *s
		r.services.mu.Lock()
		r.services.services[cp.ID] = &cp
		r.services.mu.Unlock()
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	runs []*model.SyncRun
}

func (n *fakeNotifier) NotifyCriticalFailure(_ context.Context, run *model.SyncRun) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, run)
	return nil
}
