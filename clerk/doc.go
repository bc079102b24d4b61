// Package clerk provides a client for the Clerk Frontend API.
//
// The client behaves like a native (non-browser) Clerk integration: it
// authenticates with email and password, walks a sign-up through email code
// verification and keeps the client token Clerk returns in the
// Authorization header so later calls act on the same client.
//
// # Usage
//
//	client, err := clerk.NewClient(publishableKey, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	attempt, err := client.SignIn(ctx, "you@example.com", password)
//	if err != nil {
//		fmt.Println(err) // first message reported by Clerk
//		return
//	}
//	if attempt.Complete() {
//		_, err = client.SetActive(ctx, attempt.CreatedSessionID)
//	}
//
// # Error Handling
//
// Failed requests return *Error, which carries the error list from the
// response. Its Error method returns the first human-readable message, or
// a fallback chosen by the operation when Clerk sent none.
package clerk
