package jndi

import "strings"

// InterfaceType is the role a class plays for a bean, used in internal names.
type InterfaceType string

const (
	EJBHome               InterfaceType = "EJB_HOME"
	EJBObject             InterfaceType = "EJB_OBJECT"
	EJBLocalHome          InterfaceType = "EJB_LOCAL_HOME"
	EJBLocal              InterfaceType = "EJB_LOCAL"
	BusinessLocalType     InterfaceType = "BUSINESS_LOCAL"
	BusinessRemoteType    InterfaceType = "BUSINESS_REMOTE"
	LocalBeanType         InterfaceType = "LOCALBEAN"
	BusinessLocalBeanHome InterfaceType = "BUSINESS_LOCALBEAN_HOME"
	ServiceEndpointType   InterfaceType = "SERVICE_ENDPOINT"
	MessageListenerType   InterfaceType = "MESSAGE_LISTENER"
)

var specNames = map[InterfaceType]string{
	EJBHome:               "Home",
	EJBObject:             "Remote",
	EJBLocalHome:          "LocalHome",
	EJBLocal:              "Local",
	BusinessLocalType:     "Local",
	BusinessRemoteType:    "Remote",
	LocalBeanType:         "LocalBean",
	BusinessLocalBeanHome: "LocalBeanHome",
	ServiceEndpointType:   "ServiceEndpoint",
	MessageListenerType:   "MessageListener",
}

// SpecName is the suffix used after "!" in internal names.
func (t InterfaceType) SpecName() string { return specNames[t] }

// DeploymentName is the internal name of one view of a deployment:
// openejb/Deployment/<id>/<interface>[!<specName>].
func DeploymentName(deploymentID, interfaceClass string, t InterfaceType) string {
	name := "openejb/Deployment/" + deploymentID + "/" + interfaceClass
	if t != "" {
		name += "!" + t.SpecName()
	}
	return name
}

// Interface is the view category a naming strategy names.
type Interface int

const (
	RemoteHome Interface = iota
	LocalHome
	BusinessLocal
	LocalBean
	BusinessRemote
	ServiceEndpoint
)

type interfaceNames struct {
	constant, annotation, xml, legacy string
}

var interfaces = [...]interfaceNames{
	RemoteHome:      {"REMOTE_HOME", "RemoteHome", "home", ""},
	LocalHome:       {"LOCAL_HOME", "LocalHome", "local-home", "Local"},
	BusinessLocal:   {"BUSINESS_LOCAL", "Local", "business-local", "BusinessLocal"},
	LocalBean:       {"LOCALBEAN", "LocalBean", "localbean", "LocalBean"},
	BusinessRemote:  {"BUSINESS_REMOTE", "Remote", "business-remote", "BusinessRemote"},
	ServiceEndpoint: {"SERVICE_ENDPOINT", "Endpoint", "service-endpoint", "ServiceEndpoint"},
}

// Interfaces lists every view category.
var Interfaces = []Interface{RemoteHome, LocalHome, BusinessLocal, LocalBean, BusinessRemote, ServiceEndpoint}

func (i Interface) String() string         { return interfaces[i].constant }
func (i Interface) AnnotationName() string { return interfaces[i].annotation }
func (i Interface) XMLName() string        { return interfaces[i].xml }
func (i Interface) XMLNameCC() string      { return CamelCase(interfaces[i].xml) }
func (i Interface) LegacyName() string     { return interfaces[i].legacy }

// ParseInterface accepts the constant, annotation or xml spelling.
func ParseInterface(s string) (Interface, bool) {
	for _, i := range Interfaces {
		n := interfaces[i]
		if strings.EqualFold(s, n.constant) || s == n.annotation || s == n.xml {
			return i, true
		}
	}
	return 0, false
}
