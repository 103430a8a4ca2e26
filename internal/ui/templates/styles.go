package templates

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1f2933; }
header { background: #1f3a5f; color: #fff; padding: 1rem 2rem; }
header h1 { margin: 0; font-size: 1.4rem; }
main { padding: 1.5rem 2rem; display: grid; gap: 1.5rem; }
.filters { display: flex; flex-wrap: wrap; gap: 1rem; align-items: end; background: #fff; padding: 1rem; border-radius: 6px; }
.filters fieldset { border: 1px solid #d9dee5; border-radius: 4px; }
.filters .export { margin-left: auto; }
.metrics { display: grid; grid-template-columns: repeat(3, 1fr); gap: 1rem; }
.card { background: #fff; border-radius: 6px; padding: 1rem; display: flex; flex-direction: column; }
.card span { color: #52606d; font-size: 0.85rem; }
.card strong { font-size: 1.8rem; }
.summary { background: #fff; border-radius: 6px; padding: 1rem; display: flex; flex-wrap: wrap; gap: 2rem; }
.summary p { flex-basis: 100%; margin: 0; }
.summary table { border-collapse: collapse; min-width: 18rem; }
.summary caption { text-align: left; font-weight: 600; padding-bottom: 0.4rem; }
.summary th, .summary td { border-bottom: 1px solid #e4e7eb; padding: 0.35rem 0.6rem; text-align: left; }
.charts { display: grid; grid-template-columns: repeat(auto-fit, minmax(32rem, 1fr)); gap: 1rem; }
.charts figure { margin: 0; background: #fff; border-radius: 6px; padding: 0.5rem; }
.charts img { width: 100%; height: auto; }
.error { color: #b42318; margin: 0; min-height: 1.2rem; flex-basis: 100%; }
`
