package globals

// HealthPath is the liveness route. Requests to it aren't logged.
const HealthPath = "/health"
