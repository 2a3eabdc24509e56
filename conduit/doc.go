// Package conduit is a client for Phabricator's Conduit API.
//
// A Client authenticates in one of two ways. With a Conduit API token every
// call carries {"token": ...} and no handshake is needed. With a legacy
// Conduit certificate the first call performs conduit.connect, signing the
// current Unix time with the certificate, and every later call carries the
// returned sessionKey and connectionID.
//
// Each call is an HTTP POST to {host}/api/{method} with the form fields
// params (JSON, including the __conduit__ session descriptor) and
// output=json. The response envelope is decoded with object key order
// preserved. A non-null error_code is returned as a *PhabricatorError;
// network failures are *TransportError and unreadable responses are
// *DecodingError.
//
//	c, err := conduit.NewClient(conduit.Config{
//		Host:  "https://phabricator.example.org",
//		User:  "alice",
//		Token: "api-...",
//	})
//	if err != nil {
//		return err
//	}
//	me, err := c.Call(ctx, "user.whoami", nil)
package conduit
