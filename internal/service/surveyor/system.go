package surveyor

// systemDirectories are owned by the base filesystem package on Debian and RPM distributions.
//
//nolint:gochecknoglobals // Fixed lookup table.
var systemDirectories = map[string]struct{}{
	"/":                          {},
	"/bin":                       {},
	"/boot":                      {},
	"/etc":                       {},
	"/home":                      {},
	"/lib":                       {},
	"/lib64":                     {},
	"/opt":                       {},
	"/sbin":                      {},
	"/srv":                       {},
	"/tmp":                       {},
	"/usr":                       {},
	"/usr/bin":                   {},
	"/usr/include":               {},
	"/usr/lib":                   {},
	"/usr/lib64":                 {},
	"/usr/libexec":               {},
	"/usr/local":                 {},
	"/usr/sbin":                  {},
	"/usr/share":                 {},
	"/usr/share/applications":    {},
	"/usr/share/cloud-providers": {},
	"/usr/share/doc":             {},
	"/usr/share/man":             {},
	"/var":                       {},
	"/var/lib":                   {},
	"/var/log":                   {},
}

// systemTrees are hierarchies whose directories always belong to other packages.
//
//nolint:gochecknoglobals // Fixed lookup table.
var systemTrees = []string{
	"/usr/share/icons",
	"/usr/share/mime",
	"/usr/share/pixmaps",
	"/usr/share/metainfo",
}
