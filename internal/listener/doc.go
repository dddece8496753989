// Package listener connects the security context of a request to the audit tracking services.
//
// BlameListener and LoggerListener subscribe to kernel.EventRequest. At the start of
// every request they resolve who is acting, seeing through switch-user impersonation,
// and hand that identity to the blameable and loggable services so that every write
// made during the request is attributed to it.
package listener
