// Package messaging publishes messages to a broker without tying callers to
// a specific one. NATS, NSQ, Kafka and Google Pub/Sub are supported; the
// driver is picked from configuration by NewFromDriver.
package messaging
