// Package campus is the domain of a university-assistant chat client: the
// session controller, its collaborators (identity provider, conversation
// store, answer service, preference store) and the pure helpers for titles
// and links. Implementations of the collaborators live in subpackages named
// after the technology they wrap.
package campus
