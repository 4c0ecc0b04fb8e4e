// Package compose turns a screenshot batch into a self-contained HTML
// notification message with inline images.
//
// Every <img> in the body references a content ID that has a matching inline
// part. Images that cannot be read are left out of both the body and the
// inline parts, and the omission is logged and recorded on the message.
package compose
