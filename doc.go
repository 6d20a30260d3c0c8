/*
Package injgen generates dependency injection code at build time.

Constructors marked with the inject directive get a factory, and structs
with injection sites get a members injector:

	type Service struct {
		DB *sql.DB `inject:"primary"`
	}

	//injgen:inject
	func NewService(l *Logger) *Service

Bindings for types outside the processed packages are discovered lazily
while walking dependencies, and their artifacts are generated alongside,
with a note suggesting to process their package instead.

# Architecture pipeline (for developers)

Each element in the pipeline has distinct sub-packages that do a specific part. These are then "glued" together in [processor].
 1. [config] and [loader]: Read 'injgen.toml' and the environment, load and type-check the packages
 2. [model]: Index inject constructors, injection sites and embedding parents
 3. [keys] and [binding]: Canonicalize types into keys and build bindings for them
 4. [registry]: Cache bindings per pass and schedule their artifacts exactly once
 5. [gen]: Render the scheduled artifacts as Go files
*/
package injgen
