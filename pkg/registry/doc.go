/*
Package registry keeps the in-memory catalogue of widget factory names.

Providers register their widgets at startup. Names are case-insensitive and
the first provider to claim a name keeps it. A provider that later tries to
claim a name owned by someone else is disabled: the call fails, everything it
had registered is removed and its further registrations are rejected.

The catalogue is only used to validate and list names. It knows nothing about
rendering.
*/
package registry
