/*
Package notify delivers admin alerts.

A Notifier takes one alert and one recipient; fan-out across the
recipient list, cooldown suppression, and fire-and-forget semantics are
the Alert Emitter's responsibility in the fleet package. The stock
implementation posts alerts as JSON to each administrator's webhook URL.

Resource alerts carry warning severity; down and unreachable alerts
carry error severity.
*/
package notify
