package kakoune

// Face names declared by the editor-side script.
const (
	FaceDefault                = "Information"
	FaceRule                   = "InfoRule"
	FaceHeader                 = "InfoHeader"
	FaceBlock                  = "InfoBlock"
	FaceBlockQuote             = "InfoBlockQuote"
	FaceBullet                 = "InfoBullet"
	FaceLink                   = "InfoLink"
	FaceMono                   = "InfoMono"
	FaceDiagnosticError        = "InfoDiagnosticError"
	FaceDiagnosticWarning      = "InfoDiagnosticWarning"
	FaceDiagnosticInformation  = "InfoDiagnosticInformation"
	FaceDiagnosticHint         = "InfoDiagnosticHint"
	FaceAttributeItalicDefault = "+i@" + FaceDefault
	FaceAttributeBoldDefault   = "+b@" + FaceDefault
)

// Face renders a face annotation.
func Face(name string) string {
	return "{" + name + "}"
}

// Faced wraps already escaped text in face and resets to the default face.
func Faced(face, escaped string) string {
	return Face(face) + escaped + Face(FaceDefault)
}

// Rule separates independent blocks of info content.
const Rule = "\n{" + FaceRule + "}---{" + FaceDefault + "}\n"
