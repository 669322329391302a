package assembler

const (
	// Config stage
	ErrCodeConfigInvalid = "CONFIG_INVALID_ERROR"
	ErrCodeAppInvalid    = "APP_INVALID_ERROR"

	// Facilities stage
	ErrCodeTransactionService = "TRANSACTION_SERVICE_ERROR"
	ErrCodeSecurityService    = "SECURITY_SERVICE_ERROR"
	ErrCodeContainerCreate    = "CONTAINER_CREATE_ERROR"

	// Classes stage
	ErrCodeClassDefine = "CLASS_DEFINE_ERROR"
	ErrCodeClassLink   = "CLASS_LINK_ERROR"

	// Beans stage
	ErrCodeDuplicateApplication  = "DUPLICATE_APPLICATION_ERROR"
	ErrCodeDuplicateDeploymentID = "DUPLICATE_DEPLOYMENT_ID_ERROR"
	ErrCodeBeanClass             = "BEAN_CLASS_ERROR"
	ErrCodeContainerNotFound     = "CONTAINER_NOT_FOUND_ERROR"
	ErrCodeBeanMethod            = "BEAN_METHOD_ERROR"

	// Interceptors stage
	ErrCodeInterceptorBuild = "INTERCEPTOR_BUILD_ERROR"

	// Policy stage
	ErrCodeTransactionPolicy = "TRANSACTION_POLICY_ERROR"
	ErrCodeConcurrencyPolicy = "CONCURRENCY_POLICY_ERROR"
	ErrCodePermissionPolicy  = "PERMISSION_POLICY_ERROR"
	ErrCodeTimerFixup        = "TIMER_TRANSACTION_FIXUP_ERROR"
	ErrCodeAppException      = "APPLICATION_EXCEPTION_ERROR"

	// JNDI stage
	ErrCodeJndiStrategy  = "JNDI_STRATEGY_ERROR"
	ErrCodeJndiCollision = "JNDI_NAME_COLLISION_ERROR"
	ErrCodeJndiBind      = "JNDI_BIND_ERROR"
	ErrCodeJndiLedger    = "JNDI_LEDGER_ERROR"

	// References stage
	ErrCodeReferenceResolve = "REFERENCE_RESOLVE_ERROR"

	// Deploy / undeploy
	ErrCodeContainerDeploy = "CONTAINER_DEPLOY_ERROR"
	ErrCodeAppNotFound     = "APP_NOT_FOUND_ERROR"
	ErrCodeUndeploy        = "UNDEPLOY_ERROR"

	// ErrCodeUnknownBug marks failures that are defects of the assembler
	// itself rather than of the deployed application.
	ErrCodeUnknownBug = "UNKNOWN_BUG"
)

// StableErrorCodes is the canonical registry of assembly error codes.
var StableErrorCodes = []string{
	ErrCodeConfigInvalid,
	ErrCodeAppInvalid,
	ErrCodeTransactionService,
	ErrCodeSecurityService,
	ErrCodeContainerCreate,
	ErrCodeClassDefine,
	ErrCodeClassLink,
	ErrCodeDuplicateApplication,
	ErrCodeDuplicateDeploymentID,
	ErrCodeBeanClass,
	ErrCodeContainerNotFound,
	ErrCodeBeanMethod,
	ErrCodeInterceptorBuild,
	ErrCodeTransactionPolicy,
	ErrCodeConcurrencyPolicy,
	ErrCodePermissionPolicy,
	ErrCodeTimerFixup,
	ErrCodeAppException,
	ErrCodeJndiStrategy,
	ErrCodeJndiCollision,
	ErrCodeJndiBind,
	ErrCodeJndiLedger,
	ErrCodeReferenceResolve,
	ErrCodeContainerDeploy,
	ErrCodeAppNotFound,
	ErrCodeUndeploy,
	ErrCodeUnknownBug,
}
