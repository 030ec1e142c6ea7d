// Package store wraps the gorm connection with the typed lookups and
// idempotent mutations the importer, reports, and maintenance commands share.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/models"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

// MatchKey is the case/whitespace-insensitive identity of a registrant name
// pair, shared by the matcher and the reconciliation reports.
func MatchKey(first, last string) string {
	return strings.ToLower(strings.TrimSpace(first)) + "|" + strings.ToLower(strings.TrimSpace(last))
}

// FindUserByName looks up a registrant by case- and whitespace-insensitive
// equality on both name fields. Returns (nil, nil) when no row matches.
func (s *Store) FindUserByName(first, last string) (*models.User, error) {
	var u models.User
	err := s.DB.
		Where("LOWER(TRIM(first_name)) = ? AND LOWER(TRIM(last_name)) = ?",
			strings.ToLower(strings.TrimSpace(first)),
			strings.ToLower(strings.TrimSpace(last))).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserExistsByName is FindUserByName without materializing the row.
func (s *Store) UserExistsByName(first, last string) (bool, error) {
	var n int64
	err := s.DB.Model(&models.User{}).
		Where("LOWER(TRIM(first_name)) = ? AND LOWER(TRIM(last_name)) = ?",
			strings.ToLower(strings.TrimSpace(first)),
			strings.ToLower(strings.TrimSpace(last))).
		Count(&n).Error
	return n > 0, err
}

// SphereIndex is an in-memory view of the sphere taxonomy, loaded once per
// batch so per-label resolution never hits the database.
type SphereIndex struct {
	bySlug map[string]models.Sphere
	byName map[string]models.Sphere // lowercase display name
	all    []models.Sphere
}

func (s *Store) LoadSphereIndex() (*SphereIndex, error) {
	var spheres []models.Sphere
	if err := s.DB.Order("id").Find(&spheres).Error; err != nil {
		return nil, err
	}
	idx := &SphereIndex{
		bySlug: make(map[string]models.Sphere, len(spheres)),
		byName: make(map[string]models.Sphere, len(spheres)),
		all:    spheres,
	}
	for _, sp := range spheres {
		idx.bySlug[sp.Slug] = sp
		idx.byName[strings.ToLower(sp.Name)] = sp
	}
	return idx, nil
}

func (i *SphereIndex) BySlug(slug string) (models.Sphere, bool) {
	sp, ok := i.bySlug[slug]
	return sp, ok
}

func (i *SphereIndex) ByNameFold(name string) (models.Sphere, bool) {
	sp, ok := i.byName[strings.ToLower(strings.TrimSpace(name))]
	return sp, ok
}

func (i *SphereIndex) All() []models.Sphere { return i.all }

// SphereIDsForUser returns the user's sphere IDs sorted ascending, the
// canonical form for set comparison.
func (s *Store) SphereIDsForUser(userID uint) ([]uint, error) {
	var ids []uint
	err := s.DB.Table("user_sphere").
		Where("user_id = ?", userID).
		Pluck("sphere_id", &ids).Error
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids, nil
}

// AttachSpheres links the user to each sphere, ignoring pairs that already
// exist.
func (s *Store) AttachSpheres(userID uint, sphereIDs []uint) error {
	for _, id := range sphereIDs {
		err := s.DB.Exec(
			"INSERT OR IGNORE INTO user_sphere (user_id, sphere_id) VALUES (?, ?)",
			userID, id).Error
		if err != nil {
			return fmt.Errorf("attach sphere %d: %w", id, err)
		}
	}
	return nil
}

// DetachSpheres removes the given sphere links; nil/empty removes all.
func (s *Store) DetachSpheres(userID uint, sphereIDs []uint) error {
	if len(sphereIDs) > 0 {
		return s.DB.Exec(
			"DELETE FROM user_sphere WHERE user_id = ? AND sphere_id IN ?",
			userID, sphereIDs).Error
	}
	return s.DB.Exec("DELETE FROM user_sphere WHERE user_id = ?", userID).Error
}

// AttachUserToEvent is idempotent: it reports whether a new link was created.
func (s *Store) AttachUserToEvent(eventID, userID uint) (bool, error) {
	var n int64
	err := s.DB.Table("event_user").
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	err = s.DB.Exec(
		"INSERT OR IGNORE INTO event_user (event_id, user_id) VALUES (?, ?)",
		eventID, userID).Error
	return err == nil, err
}

func (s *Store) DetachUserFromEvent(eventID, userID uint) error {
	return s.DB.Exec(
		"DELETE FROM event_user WHERE event_id = ? AND user_id = ?",
		eventID, userID).Error
}

func (s *Store) EventAttendeeCount(eventID uint) (int64, error) {
	var n int64
	err := s.DB.Table("event_user").Where("event_id = ?", eventID).Count(&n).Error
	return n, err
}

func (s *Store) UserEventCount(userID uint) (int64, error) {
	var n int64
	err := s.DB.Table("event_user").Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// GetOrCreateGroup resolves a group by exact name, creating it on first sight.
func (s *Store) GetOrCreateGroup(name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var g models.Group
	err := s.DB.Where(models.Group{Name: name}).FirstOrCreate(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// MaxSourceRow returns the highest recorded source_row for a sheet, 0 when the
// sheet has never been imported.
func (s *Store) MaxSourceRow(sheet string) (int, error) {
	var max *int
	err := s.DB.Model(&models.User{}).
		Where("source_sheet = ?", sheet).
		Select("MAX(source_row)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// ImportedRows loads the set of row numbers already recorded for a sheet.
func (s *Store) ImportedRows(sheet string) (map[int]bool, error) {
	var rows []int
	err := s.DB.Model(&models.User{}).
		Where("source_sheet = ? AND source_row IS NOT NULL", sheet).
		Pluck("source_row", &rows).Error
	if err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(rows))
	for _, r := range rows {
		set[r] = true
	}
	return set, nil
}

func (s *Store) EventByID(id uint) (*models.Event, error) {
	var e models.Event
	if err := s.DB.First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event %d not found", id)
		}
		return nil, err
	}
	return &e, nil
}
