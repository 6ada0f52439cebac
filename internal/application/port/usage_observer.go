package port

// UsageObserver получает события для счетчиков сервиса (Prometheus)
type UsageObserver interface {
	ObserveCacheLookup(hit bool)
	ObserveDeployCheck(canDeploy bool)
	ObserveJobError(job string)
}
