package assembler

import (
	"errors"
	"fmt"
)

// Stage is a formal assembly stage.
type Stage string

const (
	StageConfig       Stage = "CONFIG"
	StageFacilities   Stage = "FACILITIES"
	StageClasses      Stage = "CLASSES"
	StageBeans        Stage = "BEANS"
	StageInterceptors Stage = "INTERCEPTORS"
	StagePolicy       Stage = "POLICY"
	StageJNDI         Stage = "JNDI"
	StageReferences   Stage = "REFERENCES"
	StageDeploy       Stage = "DEPLOY"
	StageUndeploy     Stage = "UNDEPLOY"
)

// DeploymentError is a typed assembly error with stage and stable code.
type DeploymentError struct {
	Stage Stage
	Code  string
	Op    string
	Err   error
}

func (e *DeploymentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return fmt.Sprintf("[%s:%s] %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Op, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WrapDeploymentError wraps err into DeploymentError and keeps the cause chain.
func WrapDeploymentError(stage Stage, code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &DeploymentError{
		Stage: stage,
		Code:  code,
		Op:    op,
		Err:   err,
	}
}

// IsUnknownBug reports errors that are internal defects rather than
// deployment mistakes.
func IsUnknownBug(err error) bool {
	var de *DeploymentError
	return errors.As(err, &de) && de.Code == ErrCodeUnknownBug
}

// Code returns the stable code of err, ErrCodeUnknownBug for untyped errors.
func Code(err error) string {
	var de *DeploymentError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeUnknownBug
}

// unknownBug turns an untyped error into an UNKNOWN_BUG deployment error.
// Typed errors pass through unchanged.
func unknownBug(stage Stage, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeploymentError
	if errors.As(err, &de) {
		return err
	}
	return WrapDeploymentError(stage, ErrCodeUnknownBug, op, err)
}

var (
	ErrDuplicateDeploymentID = errors.New("deployment id already in use")
	ErrDuplicateApplication  = errors.New("application already deployed")
	ErrNoSuchApplication     = errors.New("no such application")
	ErrContainerNotFound     = errors.New("container not found")
	ErrDuplicateContainer    = errors.New("container already exists")
)
