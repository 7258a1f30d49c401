package services

import (
	"fmt"
	"testing"

	"astrolab/config"
	"astrolab/models"
	"astrolab/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	// Cheap hashing for tests
	config.AppConfig = &config.Config{SaltRound: bcrypt.MinCost}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseUser{},
		&models.Module{},
		&models.Page{},
		&models.Question{},
		&models.ModuleGroup{},
		&models.GroupMember{},
		&models.Answer{},
		&models.SubmissionReceipt{},
		&models.CheckinSession{},
	)
	require.NoError(t, err)

	return db
}

// lab is a seeded course with one two-question module and a handful of
// enrolled users.
type lab struct {
	course      models.Course
	module      models.Module
	questions   []models.Question
	students    []models.CourseUser
	instructor  models.CourseUser
	studentPass string
}

func seedLab(t *testing.T, db *gorm.DB, studentCount int) lab {
	t.Helper()

	course := models.Course{Code: "ASTR-130", Title: "Introductory Astronomy Lab"}
	require.NoError(t, db.Create(&course).Error)

	module := models.Module{CourseID: course.ID, Name: "Moons of Jupiter"}
	require.NoError(t, db.Create(&module).Error)

	page := models.Page{ModuleID: module.ID, Title: "Observations", OrderIndex: 1}
	require.NoError(t, db.Create(&page).Error)

	questions := []models.Question{
		{PageID: page.ID, Text: "Estimate the orbital period of Io.", OrderIndex: 1},
		{PageID: page.ID, Text: "Which moon is farthest in your sketch?", OrderIndex: 2},
	}
	require.NoError(t, db.Create(&questions).Error)

	password := "observatory1610"
	hashed, err := utils.HashPassword(password)
	require.NoError(t, err)

	result := lab{
		course:      course,
		module:      module,
		questions:   questions,
		studentPass: password,
	}

	for i := 0; i < studentCount; i++ {
		user := models.User{
			Name:      fmt.Sprintf("Student %d", i+1),
			Email:     fmt.Sprintf("student%d@umd.test", i+1),
			Password:  hashed,
			IsEnabled: true,
		}
		require.NoError(t, db.Create(&user).Error)

		enrollment := models.CourseUser{
			UserID:   user.ID,
			CourseID: course.ID,
			Role:     models.RoleStudent,
			IsActive: true,
		}
		require.NoError(t, db.Create(&enrollment).Error)
		result.students = append(result.students, enrollment)
	}

	instructorUser := models.User{
		Name:      "Instructor",
		Email:     "instructor@umd.test",
		Password:  hashed,
		IsEnabled: true,
	}
	require.NoError(t, db.Create(&instructorUser).Error)
	result.instructor = models.CourseUser{
		UserID:   instructorUser.ID,
		CourseID: course.ID,
		Role:     models.RoleInstructor,
		IsActive: true,
	}
	require.NoError(t, db.Create(&result.instructor).Error)

	return result
}

func TestCreateGroupThenIsInAGroup(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 2)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.NotNil(t, group)
	require.Equal(t, env.module.ID, group.ModuleID)
	require.False(t, group.IsLocked)

	inGroup, err := service.IsInAGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.True(t, inGroup)

	inGroup, err = service.IsInAGroup(env.students[1].ID, env.module.ID)
	require.NoError(t, err)
	require.False(t, inGroup)
}

func TestJoinGroupAddsMember(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 3)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	members, err := service.JoinGroup(env.students[1].ID, env.module.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
}

func TestJoinGroupRejectsDoubleMembership(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 3)
	service := NewGroupService(db)

	first, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	second, err := service.CreateGroup(env.students[1].ID, env.module.ID)
	require.NoError(t, err)

	// Already in a group for this module, whatever the target group
	_, err = service.JoinGroup(env.students[0].ID, env.module.ID, second.ID)
	var alteration *GroupAlterationError
	require.ErrorAs(t, err, &alteration)

	_, err = service.JoinGroup(env.students[0].ID, env.module.ID, first.ID)
	require.ErrorAs(t, err, &alteration)
}

func TestJoinGroupRejectsNonStudent(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 2)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	_, err = service.JoinGroup(env.instructor.ID, env.module.ID, group.ID)
	var alteration *GroupAlterationError
	require.ErrorAs(t, err, &alteration)

	_, err = service.CreateGroup(env.instructor.ID, env.module.ID)
	require.ErrorAs(t, err, &alteration)
}

func TestRemoveFromGroup(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 2)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	_, err = service.JoinGroup(env.students[1].ID, env.module.ID, group.ID)
	require.NoError(t, err)

	members, err := service.RemoveFromGroup(group.ID, env.students[1].ID)
	require.NoError(t, err)
	require.Len(t, members, 1)

	// Removing the last member dissolves the group
	members, err = service.RemoveFromGroup(group.ID, env.students[0].ID)
	require.NoError(t, err)
	require.Nil(t, members)

	got, err := service.GetGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	// A former member can form a group again
	_, err = service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
}

func TestGetGroup(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 2)
	service := NewGroupService(db)

	got, err := service.GetGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	got, err = service.GetGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, group.ID, got.ID)
}

func TestGetUsersInGroupFiltersInactive(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 3)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	_, err = service.JoinGroup(env.students[1].ID, env.module.ID, group.ID)
	require.NoError(t, err)
	_, err = service.JoinGroup(env.students[2].ID, env.module.ID, group.ID)
	require.NoError(t, err)

	// Deactivate one enrollment, disable another account
	require.NoError(t, db.Model(&models.CourseUser{}).
		Where("id = ?", env.students[1].ID).Update("is_active", false).Error)
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", env.students[2].UserID).Update("is_enabled", false).Error)

	members, err := service.GetUsersInGroup(group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, env.students[0].ID, members[0].ID)
}

func TestCheckin(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 2)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	// Case-insensitive email match
	member, err := service.Checkin("STUDENT1@umd.test", env.studentPass, group.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	require.Equal(t, env.students[0].ID, member.ID)

	// Wrong password is an expected outcome, not an error
	member, err = service.Checkin("student1@umd.test", "wrong", group.ID)
	require.NoError(t, err)
	require.Nil(t, member)

	// Not a member of this group
	member, err = service.Checkin("student2@umd.test", env.studentPass, group.ID)
	require.NoError(t, err)
	require.Nil(t, member)
}

func TestHasLock(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 2)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	_, err = service.JoinGroup(env.students[1].ID, env.module.ID, group.ID)
	require.NoError(t, err)

	all := []uint{env.students[0].ID, env.students[1].ID}

	hasLock, err := service.HasLock(group.ID, all)
	require.NoError(t, err)
	require.True(t, hasLock)

	hasLock, err = service.HasLock(group.ID, all[:1])
	require.NoError(t, err)
	require.False(t, hasLock)

	hasLock, err = service.HasLock(group.ID, nil)
	require.NoError(t, err)
	require.False(t, hasLock)

	// A deactivated member is no longer expected at checkin
	require.NoError(t, db.Model(&models.CourseUser{}).
		Where("id = ?", env.students[1].ID).Update("is_active", false).Error)

	hasLock, err = service.HasLock(group.ID, all[:1])
	require.NoError(t, err)
	require.True(t, hasLock)
}

func TestFinalizeGroupSeedsDrafts(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 1)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	require.NoError(t, service.FinalizeGroup(group.ID))

	var locked models.ModuleGroup
	require.NoError(t, db.First(&locked, group.ID).Error)
	require.True(t, locked.IsLocked)

	drafts, err := service.GetAnswers(group.ID, true)
	require.NoError(t, err)
	require.Len(t, drafts, len(env.questions))
	for _, draft := range drafts {
		require.EqualValues(t, 0, draft.SubmissionNumber)
		require.Nil(t, draft.SubmittedAt)
		require.Empty(t, draft.Value)
	}

	// A locked group is not re-seeded
	require.NoError(t, service.FinalizeGroup(group.ID))
	drafts, err = service.GetAnswers(group.ID, true)
	require.NoError(t, err)
	require.Len(t, drafts, len(env.questions))
}

func TestFinalizeGroupWithoutQuestions(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 1)
	service := NewGroupService(db)

	empty := models.Module{CourseID: env.course.ID, Name: "Empty Module"}
	require.NoError(t, db.Create(&empty).Error)

	group, err := service.CreateGroup(env.students[0].ID, empty.ID)
	require.NoError(t, err)

	require.NoError(t, service.FinalizeGroup(group.ID))

	drafts, err := service.GetAnswers(group.ID, true)
	require.NoError(t, err)
	require.Empty(t, drafts)
}

func TestSaveAnswers(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 1)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	// No drafts before finalization: a no-op, not an error
	drafts, err := service.SaveAnswers(map[uint]string{env.questions[0].ID: "1.77 days"}, group.ID)
	require.NoError(t, err)
	require.Nil(t, drafts)

	require.NoError(t, service.FinalizeGroup(group.ID))

	drafts, err = service.SaveAnswers(map[uint]string{
		env.questions[0].ID: "1.77 days",
		9999:                "ignored",
	}, group.ID)
	require.NoError(t, err)
	require.Len(t, drafts, len(env.questions))

	byQuestion := make(map[uint]string)
	for _, draft := range drafts {
		byQuestion[draft.QuestionID] = draft.Value
	}
	require.Equal(t, "1.77 days", byQuestion[env.questions[0].ID])
	require.Empty(t, byQuestion[env.questions[1].ID])
}

func TestSubmissionNumber(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 1)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)

	_, ok, err := service.SubmissionNumber(group.ID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, service.FinalizeGroup(group.ID))

	number, ok, err := service.SubmissionNumber(group.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, number)
}

func TestSubmitAnswersRounds(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 1)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.NoError(t, service.FinalizeGroup(group.ID))

	_, err = service.SaveAnswers(map[uint]string{
		env.questions[0].ID: "1.77 days",
		env.questions[1].ID: "Callisto",
	}, group.ID)
	require.NoError(t, err)

	// First round
	submitted, err := service.SubmitAnswers(group.ID)
	require.NoError(t, err)
	require.Len(t, submitted, len(env.questions))
	for _, answer := range submitted {
		require.EqualValues(t, 1, answer.SubmissionNumber)
		require.NotNil(t, answer.SubmittedAt)
	}

	// Drafts survive submission
	drafts, err := service.GetAnswers(group.ID, true)
	require.NoError(t, err)
	require.Len(t, drafts, len(env.questions))

	// Second round supersedes the first
	_, err = service.SaveAnswers(map[uint]string{env.questions[1].ID: "Ganymede"}, group.ID)
	require.NoError(t, err)

	submitted, err = service.SubmitAnswers(group.ID)
	require.NoError(t, err)
	require.Len(t, submitted, len(env.questions))
	for _, answer := range submitted {
		require.EqualValues(t, 2, answer.SubmissionNumber)
	}

	latest, err := service.GetAnswers(group.ID, false)
	require.NoError(t, err)
	require.Len(t, latest, len(env.questions))
	for _, answer := range latest {
		require.EqualValues(t, 2, answer.SubmissionNumber)
	}

	number, ok, err := service.SubmissionNumber(group.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, number)
}

func TestGetAnswersExcludesDraftsFromSubmittedView(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 1)
	service := NewGroupService(db)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	require.NoError(t, service.FinalizeGroup(group.ID))

	// Only drafts exist: the submitted view is empty because round 0 has
	// no submission timestamp
	latest, err := service.GetAnswers(group.ID, false)
	require.NoError(t, err)
	require.Empty(t, latest)
}

func TestGetFreeUsers(t *testing.T) {
	db := newTestDB(t)
	env := seedLab(t, db, 3)
	service := NewGroupService(db)

	free, err := service.GetFreeUsers(env.course.ID, env.module.ID)
	require.NoError(t, err)
	require.Len(t, free, 3)

	group, err := service.CreateGroup(env.students[0].ID, env.module.ID)
	require.NoError(t, err)
	_, err = service.JoinGroup(env.students[1].ID, env.module.ID, group.ID)
	require.NoError(t, err)

	free, err = service.GetFreeUsers(env.course.ID, env.module.ID)
	require.NoError(t, err)
	require.Len(t, free, 1)
	require.Equal(t, env.students[2].ID, free[0].ID)

	// Instructors are never listed for group formation
	for _, user := range free {
		require.Equal(t, models.RoleStudent, user.Role)
	}
}
