package info

// BeanKind selects the variant of an EnterpriseBeanInfo.
type BeanKind string

const (
	Stateless     BeanKind = "STATELESS"
	Stateful      BeanKind = "STATEFUL"
	Singleton     BeanKind = "SINGLETON"
	Managed       BeanKind = "MANAGED"
	BMPEntity     BeanKind = "BMP_ENTITY"
	CMPEntity     BeanKind = "CMP_ENTITY"
	MessageDriven BeanKind = "MESSAGE_DRIVEN"
)

// IsSession reports kinds that carry a SessionInfo.
func (k BeanKind) IsSession() bool {
	switch k {
	case Stateless, Stateful, Singleton, Managed:
		return true
	}
	return false
}

// IsEntity reports kinds that carry an EntityInfo.
func (k BeanKind) IsEntity() bool {
	return k == BMPEntity || k == CMPEntity
}

// ContainerType is the container type able to host beans of this kind.
func (k BeanKind) ContainerType() ContainerType {
	switch k {
	case Stateless:
		return StatelessContainer
	case Stateful:
		return StatefulContainer
	case Singleton:
		return SingletonContainer
	case Managed:
		return ManagedContainer
	case BMPEntity:
		return BMPEntityContainer
	case CMPEntity:
		return CMPEntityContainer
	case MessageDriven:
		return MessageContainer
	}
	return ""
}

// Management style for transactions and concurrency.
const (
	ContainerManaged = "Container"
	BeanManaged      = "Bean"
)

// EnterpriseBeanInfo is one bean of an ejb-jar. Fields shared by every kind
// live here; kind-specific fields live in exactly one of Session, Entity or
// MessageDriven.
type EnterpriseBeanInfo struct {
	Kind            BeanKind `json:"kind" validate:"required,oneof=STATELESS STATEFUL SINGLETON MANAGED BMP_ENTITY CMP_ENTITY MESSAGE_DRIVEN"`
	EjbName         string   `json:"ejbName" validate:"required"`
	EjbDeploymentID string   `json:"ejbDeploymentId,omitempty"`
	EjbClass        string   `json:"ejbClass" validate:"required"`
	ContainerID     string   `json:"containerId,omitempty"`
	MappedName      string   `json:"mappedName,omitempty"`
	Description     string   `json:"description,omitempty"`

	Home            string   `json:"home,omitempty"`
	Remote          string   `json:"remote,omitempty"`
	LocalHome       string   `json:"localHome,omitempty"`
	Local           string   `json:"local,omitempty"`
	BusinessLocal   []string `json:"businessLocal,omitempty"`
	BusinessRemote  []string `json:"businessRemote,omitempty"`
	LocalBean       bool     `json:"localbean,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint,omitempty"`

	TransactionType string `json:"transactionType,omitempty" validate:"omitempty,oneof=Container Bean"`

	AroundInvoke  []CallbackInfo `json:"aroundInvoke,omitempty" validate:"dive"`
	AroundTimeout []CallbackInfo `json:"aroundTimeout,omitempty" validate:"dive"`
	PostConstruct []CallbackInfo `json:"postConstruct,omitempty" validate:"dive"`
	PreDestroy    []CallbackInfo `json:"preDestroy,omitempty" validate:"dive"`

	TimeoutMethod       *NamedMethodInfo     `json:"timeoutMethod,omitempty"`
	Schedules           []MethodScheduleInfo `json:"schedules,omitempty" validate:"dive"`
	AsynchronousMethods []NamedMethodInfo    `json:"asynchronous,omitempty" validate:"dive"`

	JndiNames  []JndiNameInfo     `json:"jndiNames,omitempty" validate:"dive"`
	EjbRefs    []EjbReferenceInfo `json:"ejbRefs,omitempty" validate:"dive"`
	Properties Properties         `json:"properties,omitempty"`

	Session       *SessionInfo       `json:"session,omitempty"`
	Entity        *EntityInfo        `json:"entity,omitempty"`
	MessageDriven *MessageDrivenInfo `json:"messageDriven,omitempty"`
}

// SessionInfo holds fields of stateless, stateful, singleton and managed beans.
type SessionInfo struct {
	ConcurrencyType string       `json:"concurrencyType,omitempty" validate:"omitempty,oneof=Container Bean"`
	Startup         bool         `json:"startup,omitempty"`
	DependsOn       []string     `json:"dependsOn,omitempty"`
	StatefulTimeout *TimeoutInfo `json:"statefulTimeout,omitempty"`

	PostActivate     []CallbackInfo `json:"postActivate,omitempty" validate:"dive"`
	PrePassivate     []CallbackInfo `json:"prePassivate,omitempty" validate:"dive"`
	AfterBegin       []CallbackInfo `json:"afterBegin,omitempty" validate:"dive"`
	BeforeCompletion []CallbackInfo `json:"beforeCompletion,omitempty" validate:"dive"`
	AfterCompletion  []CallbackInfo `json:"afterCompletion,omitempty" validate:"dive"`
}

// EntityInfo holds fields of BMP and CMP entity beans.
type EntityInfo struct {
	PrimKeyClass string `json:"primKeyClass,omitempty"`
	Reentrant    bool   `json:"reentrant,omitempty"`
	AbstractName string `json:"abstractSchemaName,omitempty"`
}

// MessageDrivenInfo holds fields of message-driven beans.
type MessageDrivenInfo struct {
	MdbInterface          string            `json:"mdbInterface,omitempty"`
	DestinationID         string            `json:"destinationId,omitempty"`
	ActivationProperties  map[string]string `json:"activationProperties,omitempty"`
	MessageDestinationRef string            `json:"messageDestinationLink,omitempty"`
}

// DeploymentID returns the explicit deployment id, or the ejb name.
func (b *EnterpriseBeanInfo) DeploymentID() string {
	if b.EjbDeploymentID != "" {
		return b.EjbDeploymentID
	}
	return b.EjbName
}

// BeanManagedTransactions reports whether the bean demarcates its own transactions.
func (b *EnterpriseBeanInfo) BeanManagedTransactions() bool {
	return b.TransactionType == BeanManaged
}

// BeanManagedConcurrency reports whether the bean controls its own locking.
func (b *EnterpriseBeanInfo) BeanManagedConcurrency() bool {
	return b.Session != nil && b.Session.ConcurrencyType == BeanManaged
}

// SessionOrEmpty returns the session variant or a zero value.
func (b *EnterpriseBeanInfo) SessionOrEmpty() SessionInfo {
	if b.Session == nil {
		return SessionInfo{}
	}
	return *b.Session
}

// CallbackInfo names a lifecycle or interceptor method. ClassName is the
// declaring class; empty means the class the callback is looked up on.
type CallbackInfo struct {
	ClassName string `json:"className,omitempty"`
	Method    string `json:"method" validate:"required"`
}

// MethodScheduleInfo binds a timer schedule to a method.
type MethodScheduleInfo struct {
	Method     NamedMethodInfo `json:"method"`
	Expression string          `json:"expression,omitempty"`
}

// TimeoutInfo is a duration with a textual unit.
type TimeoutInfo struct {
	Time int64  `json:"time"`
	Unit string `json:"unit,omitempty" validate:"omitempty,oneof=NANOSECONDS MICROSECONDS MILLISECONDS SECONDS MINUTES HOURS DAYS"`
}

// JndiNameInfo overrides the naming template for one interface of a bean.
// An empty Interface applies to every interface.
type JndiNameInfo struct {
	Name      string `json:"name" validate:"required"`
	Interface string `json:"interface,omitempty"`
}

// RefType tells which interface index an ejb reference prefers.
type RefType string

const (
	RefUnknown RefType = ""
	RefLocal   RefType = "LOCAL"
	RefRemote  RefType = "REMOTE"
)

// EjbReferenceInfo is an ejb-ref or ejb-local-ref of a bean's environment.
type EjbReferenceInfo struct {
	ReferenceName string  `json:"referenceName" validate:"required"`
	Link          string  `json:"link,omitempty"`
	Home          string  `json:"home,omitempty"`
	Interface     string  `json:"interface,omitempty"`
	MappedName    string  `json:"mappedName,omitempty"`
	Type          RefType `json:"type,omitempty" validate:"omitempty,oneof=LOCAL REMOTE"`
}
