package resource

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"lectern/internal/domain"
	resourceSvc "lectern/internal/domain/services/resource"
)

// invalid converts a validation failure into the domain error handlers map to 400
func invalid(err error) error {
	if err == nil {
		return nil
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}
	return &domain.ValidationError{Message: err.Error()}
}

// nameRule applies ValidateName to a string field
var nameRule = validation.By(func(value interface{}) error {
	name, _ := value.(string)
	return ValidateName(name)
})

// folderRule accepts "" (course root) or a valid path
var folderRule = validation.By(func(value interface{}) error {
	p := Normalize(value.(string))
	if p == "" {
		return nil
	}
	return ValidatePath(p)
})

// pathRule requires a valid non-root path
var pathRule = validation.By(func(value interface{}) error {
	return ValidatePath(Normalize(value.(string)))
})

func validateCreateFolderRequest(req *resourceSvc.CreateFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.ParentPath, folderRule),
		validation.Field(&req.Name, nameRule),
	)
}

func validateUploadRequest(req *resourceSvc.UploadRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.FolderPath, folderRule),
	)
}

func validateUploadEntriesRequest(req *resourceSvc.UploadEntriesRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.FolderPath, folderRule),
	)
}

func validateRenameRequest(req *resourceSvc.RenameRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.Path, pathRule),
		validation.Field(&req.Name, nameRule),
	)
}

func validateMoveRequest(req *resourceSvc.MoveRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.Path, pathRule),
		validation.Field(&req.Destination, folderRule),
	)
}

func validateDeleteRequest(req *resourceSvc.DeleteRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CourseID, validation.Required),
		validation.Field(&req.Path, pathRule),
	)
}
