package info

import (
	"fmt"
	"strings"
)

// Method interface views a method pattern can be restricted to.
const (
	IntfHome            = "Home"
	IntfRemote          = "Remote"
	IntfLocalHome       = "LocalHome"
	IntfLocal           = "Local"
	IntfServiceEndpoint = "ServiceEndpoint"
)

// Wildcard matches every bean, class or method.
const Wildcard = "*"

// MethodInfo is a declarative method pattern. A nil MethodParams matches
// every overload; a non-nil (possibly empty) list matches exactly.
type MethodInfo struct {
	Description  string   `json:"description,omitempty"`
	EjbName      string   `json:"ejbName,omitempty"`
	ClassName    string   `json:"className,omitempty"`
	MethodIntf   string   `json:"methodIntf,omitempty" validate:"omitempty,oneof=Home Remote LocalHome Local ServiceEndpoint *"`
	MethodName   string   `json:"methodName" validate:"required"`
	MethodParams []string `json:"methodParams"`
}

func (m MethodInfo) String() string {
	intf := m.MethodIntf
	if intf == "" {
		intf = Wildcard
	}
	class := m.ClassName
	if class == "" {
		class = Wildcard
	}
	params := Wildcard
	if m.MethodParams != nil {
		params = strings.Join(m.MethodParams, ", ")
	}
	return fmt.Sprintf("%s : %s : %s : %s(%s)", m.EjbName, intf, class, m.MethodName, params)
}

// NamedMethodInfo names a method on a known class.
type NamedMethodInfo struct {
	ClassName    string   `json:"className,omitempty"`
	MethodName   string   `json:"methodName" validate:"required"`
	MethodParams []string `json:"methodParams"`
}

func (m NamedMethodInfo) String() string {
	params := Wildcard
	if m.MethodParams != nil {
		params = strings.Join(m.MethodParams, ", ")
	}
	return fmt.Sprintf("%s(%s)", m.MethodName, params)
}

// Transaction attributes.
const (
	TxRequired     = "Required"
	TxRequiresNew  = "RequiresNew"
	TxMandatory    = "Mandatory"
	TxNever        = "Never"
	TxNotSupported = "NotSupported"
	TxSupports     = "Supports"
)

// MethodTransactionInfo assigns a transaction attribute to methods.
type MethodTransactionInfo struct {
	Description    string       `json:"description,omitempty"`
	Methods        []MethodInfo `json:"methods" validate:"required,dive"`
	TransAttribute string       `json:"transAttribute" validate:"required,oneof=Required RequiresNew Mandatory Never NotSupported Supports"`
}

// Lock types.
const (
	LockRead  = "Read"
	LockWrite = "Write"
)

// MethodConcurrencyInfo assigns a lock type and/or an access timeout to methods.
type MethodConcurrencyInfo struct {
	Description          string       `json:"description,omitempty"`
	Methods              []MethodInfo `json:"methods" validate:"required,dive"`
	ConcurrencyAttribute string       `json:"concurrencyAttribute,omitempty" validate:"omitempty,oneof=Read Write"`
	AccessTimeout        *TimeoutInfo `json:"accessTimeout,omitempty"`
}

// MethodPermissionInfo grants roles on methods, or marks them unchecked or excluded.
type MethodPermissionInfo struct {
	Description string       `json:"description,omitempty"`
	Methods     []MethodInfo `json:"methods" validate:"required,dive"`
	RoleNames   []string     `json:"roleNames,omitempty"`
	Unchecked   bool         `json:"unchecked,omitempty"`
	Excluded    bool         `json:"excluded,omitempty"`
}

// InterceptorInfo declares an interceptor class and its callback methods.
type InterceptorInfo struct {
	Clazz            string         `json:"clazz" validate:"required"`
	AroundInvoke     []CallbackInfo `json:"aroundInvoke,omitempty" validate:"dive"`
	AroundTimeout    []CallbackInfo `json:"aroundTimeout,omitempty" validate:"dive"`
	PostConstruct    []CallbackInfo `json:"postConstruct,omitempty" validate:"dive"`
	PreDestroy       []CallbackInfo `json:"preDestroy,omitempty" validate:"dive"`
	PostActivate     []CallbackInfo `json:"postActivate,omitempty" validate:"dive"`
	PrePassivate     []CallbackInfo `json:"prePassivate,omitempty" validate:"dive"`
	AfterBegin       []CallbackInfo `json:"afterBegin,omitempty" validate:"dive"`
	BeforeCompletion []CallbackInfo `json:"beforeCompletion,omitempty" validate:"dive"`
	AfterCompletion  []CallbackInfo `json:"afterCompletion,omitempty" validate:"dive"`
}

// InterceptorBindingInfo binds interceptors to a bean, a method or (with
// ejbName "*") every bean of the jar. ClassName is set for bindings that
// were derived from annotations.
type InterceptorBindingInfo struct {
	EjbName                    string           `json:"ejbName" validate:"required"`
	ClassName                  string           `json:"className,omitempty"`
	Interceptors               []string         `json:"interceptors,omitempty"`
	InterceptorOrder           []string         `json:"interceptorOrder,omitempty"`
	ExcludeDefaultInterceptors bool             `json:"excludeDefaultInterceptors,omitempty"`
	ExcludeClassInterceptors   bool             `json:"excludeClassInterceptors,omitempty"`
	Method                     *NamedMethodInfo `json:"method,omitempty"`
}

// ApplicationExceptionInfo registers an application exception class.
type ApplicationExceptionInfo struct {
	ExceptionClass string `json:"exceptionClass" validate:"required"`
	Rollback       bool   `json:"rollback,omitempty"`
	Inherited      *bool  `json:"inherited,omitempty"`
}

// IsInherited defaults to true.
func (a ApplicationExceptionInfo) IsInherited() bool {
	return a.Inherited == nil || *a.Inherited
}
