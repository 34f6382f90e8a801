package clj

// prelude defines the library macros. Every macro receives the call form and
// the calling environment ahead of its own parameters.
const prelude = `
(def defn
  (macro
    (fn [&form &env name params & body]
      (list 'def name (cons 'fn (cons params body))))))

(def defmacro
  (macro
    (fn [&form &env name params & body]
      (list 'def name
        (list 'macro
          (cons 'fn (cons (vec (cons '&form (cons '&env params))) body)))))))

(def comment
  (macro
    (fn [&form &env & _] nil)))
`

// loadPrelude evaluates the library macros into root.
func loadPrelude(ev *Evaluator, root *Frame) error {
	forms, err := ParseAll(prelude)
	if err != nil {
		return err
	}
	for _, form := range forms {
		if err := Validate(form); err != nil {
			return err
		}
		if _, err := ev.Eval(form, root); err != nil {
			return err
		}
	}
	return nil
}
