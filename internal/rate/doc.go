// Package rate implements the Redis-backed fixed-window counters that
// throttle sign-in attempts per identifier and per client IP.
package rate
