package info

import "github.com/strogmv/assembler/assembler/classes"

// Configuration is the whole descriptor graph handed to the assembler.
type Configuration struct {
	Facilities FacilitiesInfo `json:"facilities"`
	Apps       []AppInfo      `json:"apps,omitempty" validate:"dive"`
	Properties Properties     `json:"properties,omitempty"`
}

// FacilitiesInfo holds the services created before any application.
type FacilitiesInfo struct {
	TransactionService ServiceInfo     `json:"transactionService"`
	SecurityService    ServiceInfo     `json:"securityService"`
	Containers         []ContainerInfo `json:"containers,omitempty" validate:"dive"`
}

// ServiceInfo describes a pluggable service.
type ServiceInfo struct {
	ID         string     `json:"id,omitempty"`
	Service    string     `json:"service,omitempty"`
	ClassName  string     `json:"className,omitempty"`
	Properties Properties `json:"properties,omitempty"`
}

// ContainerType is the kind of beans a container hosts.
type ContainerType string

const (
	StatelessContainer ContainerType = "STATELESS"
	StatefulContainer  ContainerType = "STATEFUL"
	SingletonContainer ContainerType = "SINGLETON"
	ManagedContainer   ContainerType = "MANAGED"
	BMPEntityContainer ContainerType = "BMP_ENTITY"
	CMPEntityContainer ContainerType = "CMP_ENTITY"
	MessageContainer   ContainerType = "MESSAGE"
)

// ContainerInfo describes one container.
type ContainerInfo struct {
	ID         string        `json:"id" validate:"required"`
	Type       ContainerType `json:"type" validate:"required,oneof=STATELESS STATEFUL SINGLETON MANAGED BMP_ENTITY CMP_ENTITY MESSAGE"`
	Properties Properties    `json:"properties,omitempty"`
}

// AppInfo is one application: a standalone jar or an ear of jars.
type AppInfo struct {
	AppID            string       `json:"appId" validate:"required"`
	Path             string       `json:"path,omitempty"`
	StandaloneModule bool         `json:"standaloneModule,omitempty"`
	EjbJars          []EjbJarInfo `json:"ejbJars,omitempty" validate:"dive"`
	Properties       Properties   `json:"properties,omitempty"`
}

// EjbJarInfo is one ejb module.
type EjbJarInfo struct {
	ModuleName string `json:"moduleName" validate:"required"`
	// ModuleURI is the module path inside the application, e.g. "orders.jar".
	ModuleURI string `json:"moduleUri,omitempty"`
	Path      string `json:"path,omitempty"`

	Classes               []classes.Definition       `json:"classes,omitempty" validate:"dive"`
	EnterpriseBeans       []EnterpriseBeanInfo       `json:"enterpriseBeans,omitempty" validate:"dive"`
	Interceptors          []InterceptorInfo          `json:"interceptors,omitempty" validate:"dive"`
	InterceptorBindings   []InterceptorBindingInfo   `json:"interceptorBindings,omitempty" validate:"dive"`
	MethodTransactions    []MethodTransactionInfo    `json:"methodTransactions,omitempty" validate:"dive"`
	MethodConcurrency     []MethodConcurrencyInfo    `json:"methodConcurrency,omitempty" validate:"dive"`
	MethodPermissions     []MethodPermissionInfo     `json:"methodPermissions,omitempty" validate:"dive"`
	ExcludeList           []MethodInfo               `json:"excludeList,omitempty" validate:"dive"`
	ApplicationExceptions []ApplicationExceptionInfo `json:"applicationExceptions,omitempty" validate:"dive"`
	Properties            Properties                 `json:"properties,omitempty"`
}

// URI returns ModuleURI, falling back to the module name.
func (j *EjbJarInfo) URI() string {
	if j.ModuleURI != "" {
		return j.ModuleURI
	}
	return j.ModuleName
}

// Bean finds a bean by ejb name.
func (j *EjbJarInfo) Bean(ejbName string) (*EnterpriseBeanInfo, bool) {
	for i := range j.EnterpriseBeans {
		if j.EnterpriseBeans[i].EjbName == ejbName {
			return &j.EnterpriseBeans[i], true
		}
	}
	return nil, false
}
