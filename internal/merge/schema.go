package merge

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"sitegen/internal/domain"
)

// SchemaVersion is the template schema version the merger is written against.
// Templates declaring the same major version are accepted.
const SchemaVersion = "1.0.0"

// CheckCompatible rejects templates whose schema_version the merger cannot
// apply. An empty version is read as SchemaVersion.
func CheckCompatible(tpl domain.Template) error {
	constraint, err := semver.NewConstraint("^" + SchemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema version: %w", err)
	}
	raw := strings.TrimSpace(tpl.SchemaVersion)
	if raw == "" {
		raw = SchemaVersion
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: template %s version %q: %v", domain.ErrIncompatible, tpl.ID, raw, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: template %s declares %s, want ^%s", domain.ErrIncompatible, tpl.ID, v, SchemaVersion)
	}
	return nil
}
