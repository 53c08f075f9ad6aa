package dummydb

import (
	"context"
	"sort"

	"github.com/clms-app/clms/core/gamification"
)

type gamificationStore struct {
	db   *DB
	inTx bool
}

var _ gamification.Store = (*gamificationStore)(nil) // interface compliance check

func NewGamificationStore(db *DB) gamification.Store {
	return &gamificationStore{db: db}
}

// WithinTx runs fn alone against the store and restores the previous tables if it fails.
func (store *gamificationStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repo gamification.Repository) error) error {
	if store.inTx {
		return fn(ctx, store)
	}

	store.db.txMu.Lock()
	defer store.db.txMu.Unlock()

	snap := store.db.snapshot()
	if err := fn(ctx, &gamificationStore{db: store.db, inTx: true}); err != nil {
		store.db.restore(snap)
		return err
	}
	return nil
}

func (store *gamificationStore) LessonExists(ctx context.Context, lessonID string) (bool, error) {
	if err := store.db.fault("LessonExists"); err != nil {
		return false, err
	}
	var exists bool
	err := store.db.read(func() error {
		_, exists = store.db.tables.lesson[lessonID]
		return nil
	})
	return exists, err
}

func (store *gamificationStore) findProgress(studentID, lessonID string) (gamification.Progress, bool) {
	for _, p := range store.db.tables.progress {
		if p.StudentID == studentID && p.LessonID == lessonID {
			return p, true
		}
	}
	return gamification.Progress{}, false
}

func (store *gamificationStore) GetProgress(ctx context.Context, studentID, lessonID string) (gamification.Progress, error) {
	if err := store.db.fault("GetProgress"); err != nil {
		return gamification.Progress{}, err
	}
	var p gamification.Progress
	err := store.db.read(func() error {
		var ok bool
		if p, ok = store.findProgress(studentID, lessonID); !ok {
			return gamification.ErrProgressNotFound
		}
		return nil
	})
	return p, err
}

func (store *gamificationStore) CreateProgress(ctx context.Context, p gamification.Progress) (gamification.Progress, error) {
	if err := store.db.fault("CreateProgress"); err != nil {
		return gamification.Progress{}, err
	}
	err := store.db.write(store.inTx, func() error {
		if _, ok := store.db.tables.student[p.StudentID]; !ok {
			return gamification.ErrStudentNotFound
		}
		if _, ok := store.db.tables.lesson[p.LessonID]; !ok {
			return gamification.ErrLessonNotFound
		}
		if _, ok := store.findProgress(p.StudentID, p.LessonID); ok {
			return gamification.ErrProgressExists
		}
		p.Lesson = nil
		store.db.tables.progress[p.ID] = p
		return nil
	})
	if err != nil {
		return gamification.Progress{}, err
	}
	return p, nil
}

func (store *gamificationStore) UpdateProgress(ctx context.Context, p gamification.Progress) (gamification.Progress, error) {
	if err := store.db.fault("UpdateProgress"); err != nil {
		return gamification.Progress{}, err
	}
	err := store.db.write(store.inTx, func() error {
		orig, ok := store.db.tables.progress[p.ID]
		if !ok {
			return gamification.ErrProgressNotFound
		}
		orig.Completed = p.Completed
		orig.Score = p.Score
		orig.XPEarned = p.XPEarned
		orig.UpdatedAt = p.UpdatedAt
		store.db.tables.progress[p.ID] = orig
		p = orig
		return nil
	})
	if err != nil {
		return gamification.Progress{}, err
	}
	return p, nil
}

func (store *gamificationStore) QueryStudentProgress(ctx context.Context, studentID string) ([]gamification.Progress, error) {
	if err := store.db.fault("QueryStudentProgress"); err != nil {
		return nil, err
	}
	progress := make([]gamification.Progress, 0)
	err := store.db.read(func() error {
		for _, p := range store.db.tables.progress {
			if p.StudentID != studentID {
				continue
			}
			if l, ok := store.db.tables.lesson[p.LessonID]; ok {
				s := store.db.tables.subject[l.SubjectID]
				p.Lesson = &gamification.LessonSummary{
					ID:        l.ID,
					Title:     l.Title,
					Content:   l.Content,
					SubjectID: l.SubjectID,
					Subject: gamification.SubjectSummary{
						ID:        s.ID,
						Title:     s.Title,
						TeacherID: s.TeacherID,
					},
				}
			}
			progress = append(progress, p)
		}
		return nil
	})
	sort.Slice(progress, func(i, j int) bool {
		if progress[i].CreatedAt.Equal(progress[j].CreatedAt) {
			return progress[i].ID < progress[j].ID
		}
		return progress[i].CreatedAt.Before(progress[j].CreatedAt)
	})
	return progress, err
}

func (store *gamificationStore) GetStanding(ctx context.Context, studentID string) (gamification.Standing, error) {
	if err := store.db.fault("GetStanding"); err != nil {
		return gamification.Standing{}, err
	}
	var st gamification.Standing
	err := store.db.read(func() error {
		s, ok := store.db.tables.student[studentID]
		if !ok {
			return gamification.ErrStudentNotFound
		}
		st = gamification.Standing{ID: s.ID, Name: s.Name, Email: s.Email, XP: s.XP, Level: s.Level}
		return nil
	})
	return st, err
}

func (store *gamificationStore) IncrementStudentXP(ctx context.Context, studentID string, delta int) (int, error) {
	if err := store.db.fault("IncrementStudentXP"); err != nil {
		return 0, err
	}
	var xp int
	err := store.db.write(store.inTx, func() error {
		s, ok := store.db.tables.student[studentID]
		if !ok {
			return gamification.ErrStudentNotFound
		}
		s.XP += delta
		store.db.tables.student[studentID] = s
		xp = s.XP
		return nil
	})
	return xp, err
}

func (store *gamificationStore) SetStudentLevel(ctx context.Context, studentID string, level int) error {
	if err := store.db.fault("SetStudentLevel"); err != nil {
		return err
	}
	return store.db.write(store.inTx, func() error {
		s, ok := store.db.tables.student[studentID]
		if !ok {
			return gamification.ErrStudentNotFound
		}
		s.Level = level
		store.db.tables.student[studentID] = s
		return nil
	})
}

func (store *gamificationStore) QueryTopStudents(ctx context.Context, limit int) ([]gamification.Standing, error) {
	if err := store.db.fault("QueryTopStudents"); err != nil {
		return nil, err
	}
	top := make([]gamification.Standing, 0)
	err := store.db.read(func() error {
		for _, s := range store.db.tables.student {
			top = append(top, gamification.Standing{ID: s.ID, Name: s.Name, Email: s.Email, XP: s.XP, Level: s.Level})
		}
		return nil
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].XP != top[j].XP {
			return top[i].XP > top[j].XP
		}
		if top[i].Name != top[j].Name {
			return top[i].Name < top[j].Name
		}
		return top[i].ID < top[j].ID
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, err
}

func sortBadges(badges []gamification.Badge) {
	sort.Slice(badges, func(i, j int) bool {
		if badges[i].XPRequired == badges[j].XPRequired {
			return badges[i].Name < badges[j].Name
		}
		return badges[i].XPRequired < badges[j].XPRequired
	})
}

func (store *gamificationStore) QueryAllBadges(ctx context.Context) ([]gamification.Badge, error) {
	if err := store.db.fault("QueryAllBadges"); err != nil {
		return nil, err
	}
	badges := make([]gamification.Badge, 0)
	err := store.db.read(func() error {
		for _, b := range store.db.tables.badge {
			badges = append(badges, b)
		}
		return nil
	})
	sortBadges(badges)
	return badges, err
}

func (store *gamificationStore) GetBadgeByName(ctx context.Context, name string) (gamification.Badge, error) {
	if err := store.db.fault("GetBadgeByName"); err != nil {
		return gamification.Badge{}, err
	}
	var b gamification.Badge
	err := store.db.read(func() error {
		for _, other := range store.db.tables.badge {
			if other.Name == name {
				b = other
				return nil
			}
		}
		return gamification.ErrBadgeNotFound
	})
	return b, err
}

func (store *gamificationStore) CreateBadge(ctx context.Context, b gamification.Badge) (gamification.Badge, error) {
	if err := store.db.fault("CreateBadge"); err != nil {
		return gamification.Badge{}, err
	}
	err := store.db.write(store.inTx, func() error {
		for _, other := range store.db.tables.badge {
			if other.Name == b.Name {
				return gamification.ErrBadgeExists
			}
		}
		store.db.tables.badge[b.ID] = b
		return nil
	})
	if err != nil {
		return gamification.Badge{}, err
	}
	return b, nil
}

func (store *gamificationStore) QueryEarnedBadgeIDs(ctx context.Context, studentID string) ([]string, error) {
	if err := store.db.fault("QueryEarnedBadgeIDs"); err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	err := store.db.read(func() error {
		for _, sb := range store.db.tables.studentBadge {
			if sb.StudentID == studentID {
				ids = append(ids, sb.BadgeID)
			}
		}
		return nil
	})
	return ids, err
}

func (store *gamificationStore) QueryQualifyingBadges(ctx context.Context, xp int, excludedIDs []string) ([]gamification.Badge, error) {
	if err := store.db.fault("QueryQualifyingBadges"); err != nil {
		return nil, err
	}
	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	badges := make([]gamification.Badge, 0)
	err := store.db.read(func() error {
		for _, b := range store.db.tables.badge {
			if _, ok := excluded[b.ID]; !ok && b.XPRequired <= xp {
				badges = append(badges, b)
			}
		}
		return nil
	})
	sortBadges(badges)
	return badges, err
}

func (store *gamificationStore) CreateStudentBadge(ctx context.Context, sb gamification.StudentBadge) (gamification.StudentBadge, error) {
	if err := store.db.fault("CreateStudentBadge"); err != nil {
		return gamification.StudentBadge{}, err
	}
	err := store.db.write(store.inTx, func() error {
		b, ok := store.db.tables.badge[sb.BadgeID]
		if !ok {
			return gamification.ErrBadgeNotFound
		}
		if _, ok = store.db.tables.student[sb.StudentID]; !ok {
			return gamification.ErrStudentNotFound
		}
		for _, other := range store.db.tables.studentBadge {
			if other.StudentID == sb.StudentID && other.BadgeID == sb.BadgeID {
				return gamification.ErrBadgeAlreadyAwarded
			}
		}
		sb.Badge = b
		store.db.tables.studentBadge[sb.ID] = sb
		return nil
	})
	if err != nil {
		return gamification.StudentBadge{}, err
	}
	return sb, nil
}

func (store *gamificationStore) QueryStudentBadges(ctx context.Context, studentID string) ([]gamification.StudentBadge, error) {
	if err := store.db.fault("QueryStudentBadges"); err != nil {
		return nil, err
	}
	badges := make([]gamification.StudentBadge, 0)
	err := store.db.read(func() error {
		for _, sb := range store.db.tables.studentBadge {
			if sb.StudentID == studentID {
				sb.Badge = store.db.tables.badge[sb.BadgeID]
				badges = append(badges, sb)
			}
		}
		return nil
	})
	sort.Slice(badges, func(i, j int) bool {
		if badges[i].Badge.XPRequired == badges[j].Badge.XPRequired {
			return badges[i].Badge.Name < badges[j].Badge.Name
		}
		return badges[i].Badge.XPRequired < badges[j].Badge.XPRequired
	})
	return badges, err
}
