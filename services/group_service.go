package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"astrolab/models"
	"astrolab/utils"

	"gorm.io/gorm"
)

// GroupAlterationError signals an operation that would violate membership
// rules: the course user is already in a group for the module, or does not
// hold the STUDENT role. "Not found" conditions are never errors here; they
// come back as nil results and are only logged.
type GroupAlterationError struct {
	Message string
}

func (e *GroupAlterationError) Error() string {
	return e.Message
}

// GroupService owns the rules for joining, creating, locking and dissolving
// a module group, and for the draft/submit lifecycle of its answers. Every
// mutating operation runs in one database transaction.
type GroupService struct {
	Db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{Db: db}
}

// JoinGroup adds a course user to an existing group and returns the
// refreshed member list.
func (s *GroupService) JoinGroup(courseUserID, moduleID, groupID uint) ([]models.CourseUser, error) {
	err := s.Db.Transaction(func(tx *gorm.DB) error {
		if err := s.enforceCanJoin(tx, courseUserID, moduleID); err != nil {
			return err
		}

		log.Printf("Joining group %d for course user %d in module %d", groupID, courseUserID, moduleID)

		var group models.ModuleGroup
		if err := tx.Where("id = ? AND module_id = ?", groupID, moduleID).First(&group).Error; err != nil {
			return err
		}

		member := models.GroupMember{
			CourseUserID:  courseUserID,
			ModuleGroupID: group.ID,
			ModuleID:      group.ModuleID,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetUsersInGroup(groupID)
}

// CreateGroup creates a new group for the module and adds the creator as
// its first member.
func (s *GroupService) CreateGroup(courseUserID, moduleID uint) (*models.ModuleGroup, error) {
	var group models.ModuleGroup

	err := s.Db.Transaction(func(tx *gorm.DB) error {
		if err := s.enforceCanJoin(tx, courseUserID, moduleID); err != nil {
			return err
		}

		log.Printf("Creating group for course user %d in module %d", courseUserID, moduleID)

		group = models.ModuleGroup{ModuleID: moduleID}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		member := models.GroupMember{
			CourseUserID:  courseUserID,
			ModuleGroupID: group.ID,
			ModuleID:      moduleID,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return &group, nil
}

// IsInAGroup reports whether the course user already belongs to a group for
// the module.
func (s *GroupService) IsInAGroup(courseUserID, moduleID uint) (bool, error) {
	return s.isInAGroup(s.Db, courseUserID, moduleID)
}

func (s *GroupService) isInAGroup(tx *gorm.DB, courseUserID, moduleID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.GroupMember{}).
		Where("course_user_id = ? AND module_id = ?", courseUserID, moduleID).
		Count(&count).Error
	return count > 0, err
}

// enforceCanJoin checks the join/create preconditions: STUDENT role, and
// not already in a group for the module.
func (s *GroupService) enforceCanJoin(tx *gorm.DB, courseUserID, moduleID uint) error {
	var notStudent int64
	err := tx.Model(&models.CourseUser{}).
		Where("id = ? AND role <> ?", courseUserID, models.RoleStudent).
		Count(&notStudent).Error
	if err != nil {
		return err
	}

	inGroup, err := s.isInAGroup(tx, courseUserID, moduleID)
	if err != nil {
		return err
	}

	if inGroup || notStudent > 0 {
		log.Printf("Course user %d cannot join a group for module %d", courseUserID, moduleID)
		return &GroupAlterationError{
			Message: fmt.Sprintf("course user %d cannot join a group for module %d", courseUserID, moduleID),
		}
	}

	return nil
}

// GetUsersInGroup returns the active, enabled members of a group.
func (s *GroupService) GetUsersInGroup(groupID uint) ([]models.CourseUser, error) {
	var users []models.CourseUser
	err := s.Db.Model(&models.CourseUser{}).
		Joins("JOIN group_members ON group_members.course_user_id = course_users.id").
		Joins("JOIN users ON users.id = course_users.user_id").
		Where("group_members.module_group_id = ? AND course_users.is_active = ? AND users.is_enabled = ?",
			groupID, true, true).
		Preload("User").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetGroup returns the group an active course user belongs to for a module,
// or nil when there is none.
func (s *GroupService) GetGroup(courseUserID, moduleID uint) (*models.ModuleGroup, error) {
	var group models.ModuleGroup
	err := s.Db.Model(&models.ModuleGroup{}).
		Joins("JOIN group_members ON group_members.module_group_id = module_groups.id").
		Joins("JOIN course_users ON course_users.id = group_members.course_user_id").
		Where("group_members.course_user_id = ? AND course_users.is_active = ? AND module_groups.module_id = ?",
			courseUserID, true, moduleID).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("No group for course user %d in module %d", courseUserID, moduleID)
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// Checkin verifies a group member by case-insensitive email and password.
// A failed checkin is an expected outcome, not an error: it returns nil.
func (s *GroupService) Checkin(email, password string, groupID uint) (*models.CourseUser, error) {
	var member models.CourseUser
	err := s.Db.Model(&models.CourseUser{}).
		Joins("JOIN group_members ON group_members.course_user_id = course_users.id").
		Joins("JOIN users ON users.id = course_users.user_id").
		Where("group_members.module_group_id = ? AND LOWER(users.email) = LOWER(?) AND course_users.is_active = ? AND users.is_enabled = ?",
			groupID, email, true, true).
		Preload("User").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Checkin not successful for user %s in group %d", email, groupID)
			return nil, nil
		}
		return nil, err
	}

	if !utils.CheckPassword(member.User.Password, password) {
		log.Printf("Checkin not successful for user %s in group %d", email, groupID)
		return nil, nil
	}

	log.Printf("Checkin successful for user %s in group %d", email, groupID)
	return &member, nil
}

// HasLock reports whether every active, enabled member of the group is
// present in checkedIn.
func (s *GroupService) HasLock(groupID uint, checkedIn []uint) (bool, error) {
	query := s.Db.Model(&models.GroupMember{}).
		Joins("JOIN course_users ON course_users.id = group_members.course_user_id").
		Joins("JOIN users ON users.id = course_users.user_id").
		Where("group_members.module_group_id = ? AND course_users.is_active = ? AND users.is_enabled = ?",
			groupID, true, true)

	if len(checkedIn) > 0 {
		query = query.Where("group_members.course_user_id NOT IN ?", checkedIn)
	}

	var missing int64
	if err := query.Count(&missing).Error; err != nil {
		return false, err
	}
	return missing == 0, nil
}

// GetAnswers returns the group's draft answers (wantDrafts) or the most
// recently submitted round.
func (s *GroupService) GetAnswers(groupID uint, wantDrafts bool) ([]models.Answer, error) {
	query := s.Db.Where("module_group_id = ?", groupID)

	if wantDrafts {
		query = query.Where("submission_number = ?", 0)
	} else {
		number, ok, err := s.SubmissionNumber(groupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		query = query.Where("submission_number = ? AND submitted_at IS NOT NULL", number)
	}

	var answers []models.Answer
	if err := query.Order("question_id").Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

// SubmissionNumber returns the highest submission number recorded for the
// group. ok is false when the group has no answers at all.
func (s *GroupService) SubmissionNumber(groupID uint) (int64, bool, error) {
	return s.submissionNumber(s.Db, groupID)
}

func (s *GroupService) submissionNumber(tx *gorm.DB, groupID uint) (int64, bool, error) {
	var max sql.NullInt64
	err := tx.Model(&models.Answer{}).
		Where("module_group_id = ?", groupID).
		Select("MAX(submission_number)").
		Scan(&max).Error
	if err != nil {
		return 0, false, err
	}
	if !max.Valid {
		log.Printf("Could not retrieve submission number for group %d", groupID)
		return 0, false, nil
	}
	return max.Int64, true, nil
}

// SaveAnswers updates the group's draft answers in place, matching each
// supplied question id against the draft set. When the group has no drafts
// yet (FinalizeGroup has not run) it is a no-op returning nil.
func (s *GroupService) SaveAnswers(values map[uint]string, groupID uint) ([]models.Answer, error) {
	drafts, err := s.GetAnswers(groupID, true)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		log.Printf("No draft answers to update for group %d", groupID)
		return nil, nil
	}

	err = s.Db.Transaction(func(tx *gorm.DB) error {
		for i := range drafts {
			value, ok := values[drafts[i].QuestionID]
			if !ok {
				continue
			}
			if err := tx.Model(&drafts[i]).Update("value", value).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetAnswers(groupID, true)
}

// FinalizeGroup locks the group and seeds one empty draft answer per
// question in its module. A group that is already locked is left alone so
// drafts are never seeded twice.
func (s *GroupService) FinalizeGroup(groupID uint) error {
	return s.Db.Transaction(func(tx *gorm.DB) error {
		var group models.ModuleGroup
		if err := tx.First(&group, groupID).Error; err != nil {
			return err
		}
		if group.IsLocked {
			log.Printf("Group %d is already locked", groupID)
			return nil
		}

		err := tx.Model(&models.ModuleGroup{}).
			Where("id = ?", groupID).
			Update("is_locked", true).Error
		if err != nil {
			return err
		}

		var questions []models.Question
		err = tx.Model(&models.Question{}).
			Joins("JOIN pages ON pages.id = questions.page_id").
			Where("pages.module_id = ?", group.ModuleID).
			Find(&questions).Error
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}

		log.Printf("Creating %d draft answers for group %d", len(questions), groupID)
		drafts := make([]models.Answer, 0, len(questions))
		for _, question := range questions {
			drafts = append(drafts, models.Answer{
				ModuleGroupID: groupID,
				QuestionID:    question.ID,
			})
		}
		return tx.Create(&drafts).Error
	})
}

// SubmitAnswers clones the group's drafts into a new submission round
// stamped with the next number and the current time. The drafts stay behind
// as round 0. Returns the newly submitted round.
func (s *GroupService) SubmitAnswers(groupID uint) ([]models.Answer, error) {
	drafts, err := s.GetAnswers(groupID, true)
	if err != nil {
		return nil, err
	}

	if len(drafts) > 0 {
		now := time.Now()
		err = s.Db.Transaction(func(tx *gorm.DB) error {
			current, _, err := s.submissionNumber(tx, groupID)
			if err != nil {
				return err
			}
			round := current + 1

			log.Printf("Submitting round %d for group %d", round, groupID)
			submitted := make([]models.Answer, 0, len(drafts))
			for _, draft := range drafts {
				submitted = append(submitted, models.Answer{
					ModuleGroupID:    groupID,
					QuestionID:       draft.QuestionID,
					Value:            draft.Value,
					SubmissionNumber: round,
					SubmittedAt:      &now,
				})
			}
			return tx.Create(&submitted).Error
		})
		if err != nil {
			return nil, err
		}
	}

	return s.GetAnswers(groupID, false)
}

// RemoveFromGroup deletes the membership row and, when the group emptied,
// the group itself. Returns the remaining members, or nil when the group
// was removed.
func (s *GroupService) RemoveFromGroup(groupID, courseUserID uint) ([]models.CourseUser, error) {
	var emptied bool

	err := s.Db.Transaction(func(tx *gorm.DB) error {
		log.Printf("Removing course user %d from group %d", courseUserID, groupID)

		err := tx.Unscoped().
			Where("module_group_id = ? AND course_user_id = ?", groupID, courseUserID).
			Delete(&models.GroupMember{}).Error
		if err != nil {
			return err
		}

		var remaining int64
		err = tx.Model(&models.GroupMember{}).
			Where("module_group_id = ?", groupID).
			Count(&remaining).Error
		if err != nil {
			return err
		}

		if remaining == 0 {
			log.Printf("Group %d has no members left, removing it", groupID)
			emptied = true
			return tx.Unscoped().Delete(&models.ModuleGroup{}, groupID).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if emptied {
		return nil, nil
	}
	return s.GetUsersInGroup(groupID)
}

// GetFreeUsers returns the students of a course who are not in any group
// for the given module.
func (s *GroupService) GetFreeUsers(courseID, moduleID uint) ([]models.CourseUser, error) {
	inGroup := s.Db.Model(&models.GroupMember{}).
		Select("course_user_id").
		Where("module_id = ?", moduleID)

	var users []models.CourseUser
	err := s.Db.
		Where("course_id = ? AND role = ?", courseID, models.RoleStudent).
		Where("id NOT IN (?)", inGroup).
		Preload("User").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
