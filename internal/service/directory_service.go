package service

import (
	"context"

	"github.com/bbec/class-ops-api/internal/models"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

type courseLister interface {
	List(ctx context.Context) ([]models.Course, error)
}

type userLister interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// DirectoryService serves the read-only course and staff pickers used when
// assigning sessions. Course and user CRUD live in another subsystem.
type DirectoryService struct {
	courses courseLister
	users   userLister
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(courses courseLister, users userLister) *DirectoryService {
	return &DirectoryService{courses: courses, users: users}
}

// Courses lists all courses.
func (s *DirectoryService) Courses(ctx context.Context, actor *models.JWTClaims) ([]models.Course, error) {
	if err := Authorize(actor, OpListCourses); err != nil {
		return nil, err
	}
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Staff lists active users holding the given role.
func (s *DirectoryService) Staff(ctx context.Context, actor *models.JWTClaims, role models.UserRole) ([]models.User, error) {
	if err := Authorize(actor, OpListStaff); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleAdmin, models.RoleTeacher, models.RoleEditor:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list staff")
	}
	return users, nil
}
