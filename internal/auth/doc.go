// Package auth acquires tokens from Microsoft Entra ID.
//
// Two flows are supported. [Provider.AcquireInteractive] signs a user in via
// the authorization code flow with PKCE, using a temporary loopback HTTP
// server to receive the redirect, and caches the result in an [AccountStore]
// so later runs can skip the browser. [Provider.AcquireClientCredentials]
// exchanges a client secret for an application token.
package auth
