// Package domain contains the types shared by the detector client, the
// submission service and the HTTP layer: the input methods a user can pick and
// the detection payload returned by the upstream API.
package domain
