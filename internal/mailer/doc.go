// Package mailer delivers composed messages over authenticated SMTP
// submission. Each Send opens its own session and closes it afterwards.
package mailer
