// Package textutil turns free-form names into safe path segments.
package textutil
