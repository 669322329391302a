package classes

import "sync"

// Names of the platform types the assembler knows about.
const (
	EJBObject         = "jakarta.ejb.EJBObject"
	EJBHome           = "jakarta.ejb.EJBHome"
	EJBLocalObject    = "jakarta.ejb.EJBLocalObject"
	EJBLocalHome      = "jakarta.ejb.EJBLocalHome"
	InvocationContext = "jakarta.interceptor.InvocationContext"
	MessageListener   = "jakarta.jms.MessageListener"
	Remote            = "java.rmi.Remote"
	Serializable      = "java.io.Serializable"
	TimedObject       = "jakarta.ejb.TimedObject"
	Timer             = "jakarta.ejb.Timer"
)

var systemDefinitions = []Definition{
	{Name: ObjectClass, Methods: []MethodDefinition{
		{Name: "equals", Params: []string{ObjectClass}, Returns: "boolean"},
		{Name: "hashCode", Returns: "int"},
		{Name: "toString", Returns: "java.lang.String"},
	}},
	{Name: "java.lang.String", Interfaces: []string{Serializable}},
	{Name: Serializable, Interface: true},
	{Name: Remote, Interface: true},
	{Name: "jakarta.ejb.Handle", Interface: true, Interfaces: []string{Serializable}},
	{Name: "jakarta.ejb.HomeHandle", Interface: true, Interfaces: []string{Serializable}},
	{Name: "jakarta.ejb.EJBMetaData", Interface: true},
	{Name: EJBObject, Interface: true, Interfaces: []string{Remote}, Methods: []MethodDefinition{
		{Name: "getEJBHome", Returns: EJBHome},
		{Name: "getPrimaryKey", Returns: ObjectClass},
		{Name: "remove"},
		{Name: "getHandle", Returns: "jakarta.ejb.Handle"},
		{Name: "isIdentical", Params: []string{EJBObject}, Returns: "boolean"},
	}},
	{Name: EJBHome, Interface: true, Interfaces: []string{Remote}, Methods: []MethodDefinition{
		{Name: "remove", Params: []string{"jakarta.ejb.Handle"}},
		{Name: "remove", Params: []string{ObjectClass}},
		{Name: "getEJBMetaData", Returns: "jakarta.ejb.EJBMetaData"},
		{Name: "getHomeHandle", Returns: "jakarta.ejb.HomeHandle"},
	}},
	{Name: EJBLocalObject, Interface: true, Methods: []MethodDefinition{
		{Name: "getEJBLocalHome", Returns: EJBLocalHome},
		{Name: "getPrimaryKey", Returns: ObjectClass},
		{Name: "remove"},
		{Name: "isIdentical", Params: []string{EJBLocalObject}, Returns: "boolean"},
	}},
	{Name: EJBLocalHome, Interface: true, Methods: []MethodDefinition{
		{Name: "remove", Params: []string{ObjectClass}},
	}},
	{Name: Timer, Interface: true},
	{Name: TimedObject, Interface: true, Methods: []MethodDefinition{
		{Name: "ejbTimeout", Params: []string{Timer}},
	}},
	{Name: InvocationContext, Interface: true, Methods: []MethodDefinition{
		{Name: "getTarget", Returns: ObjectClass},
		{Name: "proceed", Returns: ObjectClass},
		{Name: "getParameters", Returns: "java.lang.Object[]"},
	}},
	{Name: "jakarta.jms.Message", Interface: true},
	{Name: MessageListener, Interface: true, Methods: []MethodDefinition{
		{Name: "onMessage", Params: []string{"jakarta.jms.Message"}},
	}},
}

var (
	systemOnce   sync.Once
	systemLoader *Loader
)

// SystemLoader returns the shared loader that predefines platform types.
// Application loaders use it as their parent.
func SystemLoader() *Loader {
	systemOnce.Do(func() {
		l := NewLoader(nil)
		for _, def := range systemDefinitions {
			if _, err := l.Define(def); err != nil {
				panic(err)
			}
		}
		if err := l.Link(); err != nil {
			panic(err)
		}
		systemLoader = l
	})
	return systemLoader
}

// NewAppLoader creates a loader delegating to the system loader.
func NewAppLoader() *Loader {
	return NewLoader(SystemLoader())
}

// IsContainerMethod reports methods that belong to the container contract
// rather than the bean: everything declared on the EJB component and home
// interfaces except remove.
func IsContainerMethod(m *Method) bool {
	if m.Declaring == nil || m.Name == "remove" {
		return false
	}
	switch m.Declaring.Name {
	case EJBObject, EJBHome, EJBLocalObject, EJBLocalHome:
		return true
	}
	return false
}
