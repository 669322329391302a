package assembler

// hints suggests a fix for each stable error code.
var hints = map[string]string{
	ErrCodeConfigInvalid:         "Check the configuration descriptor against the schema; every container needs an id and a known type.",
	ErrCodeAppInvalid:            "The application descriptor failed validation; fix the fields named in the error.",
	ErrCodeTransactionService:    "Build can run once per assembler; restart with a fresh assembler to reconfigure facilities.",
	ErrCodeContainerCreate:       "Container ids must be unique.",
	ErrCodeClassDefine:           "A class is defined twice or has a malformed name.",
	ErrCodeClassLink:             "A superclass, interface or method type names a class nobody defined.",
	ErrCodeDuplicateApplication:  "Destroy the deployed application first or choose another appId.",
	ErrCodeDuplicateDeploymentID: "Two beans share a deployment id; set ejbDeploymentId on one of them.",
	ErrCodeBeanClass:             "The ejbClass or one of the bean interfaces is not among the module classes.",
	ErrCodeContainerNotFound:     "Point containerId at a configured container of the bean's kind, or enable auto-create.",
	ErrCodeBeanMethod:            "A timeout, schedule or asynchronous method does not exist on the bean class.",
	ErrCodeInterceptorBuild:      "An interceptor class or its callback method is missing.",
	ErrCodeTimerFixup:            "A timer method could not be given a supported transaction attribute.",
	ErrCodeJndiStrategy:          "The JNDI name format uses an unknown key or the strategy class is not registered.",
	ErrCodeJndiCollision:         "Two beans produce the same JNDI name; adjust openejb.jndiname.format or the bean jndiNames.",
	ErrCodeJndiLedger:            "The shared name ledger is unreachable; check Redis.",
	ErrCodeReferenceResolve:      "An ejb-ref names a bean that is not deployed; fix link or interface, or deploy the target first.",
	ErrCodeAppNotFound:           "No application with that id is deployed.",
	ErrCodeUnknownBug:            "This is a defect of the assembler itself; report it with the run id.",
}

// Hint suggests a fix for a stable error code, or "" when none is known.
func Hint(code string) string { return hints[code] }
