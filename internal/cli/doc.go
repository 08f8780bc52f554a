// Package cli implements remote_sys_info, the operator side.
//
// The root command takes an alias and forwards one request line to the
// sys_info agent over the restricted key:
//
//	remote_sys_info <alias>                        run --format=...
//	remote_sys_info <alias> info <kind> <name>     info <kind> <name> --format=...
//	remote_sys_info <alias> setup                  setup (stdin is forwarded)
//
// Host management lives in subcommands: deploy, verify, revoke, list and
// update. deploy and revoke edit authorized_keys through the operator's own
// SSH access; everything else uses only the restricted key.
//
// Network and terminal calls go through package-level hooks (dialAdmin,
// dialRestricted, probeAdmin, confirm, ...) so the commands can be tested
// without a host.
package cli
