package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>QuizGoat Dashboard</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; color: #38bdf8; }
        .header .sessions { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; background: #166534; color: #4ade80; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(240px, 1fr)); gap: 1rem; padding: 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 2rem; font-weight: 700; color: #f1f5f9; }
        .card.accent { border-color: #38bdf8; }
        .card.accent .value { color: #38bdf8; }
        .card.success { border-color: #4ade80; }
        .card.success .value { color: #4ade80; }
        .card.warning { border-color: #fbbf24; }
        .card.warning .value { color: #fbbf24; }
        .card.error { border-color: #f87171; }
        .card.error .value { color: #f87171; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>QuizGoat</h1>
        <span class="sessions"><span id="active_sessions">0</span> open browsers</span>
    </div>
    <div class="grid">
        <div class="card accent"><div class="label">Jobs Started</div><div class="value" id="jobs_started">0</div></div>
        <div class="card error"><div class="label">Jobs Failed</div><div class="value" id="jobs_failed">0</div></div>
        <div class="card warning"><div class="label">Jobs Cancelled</div><div class="value" id="jobs_cancelled">0</div></div>
        <div class="card accent"><div class="label">Batches Started</div><div class="value" id="batches_started">0</div></div>
        <div class="card success"><div class="label">Batches Completed</div><div class="value" id="batches_completed">0</div></div>
        <div class="card error"><div class="label">Batches Failed</div><div class="value" id="batches_failed">0</div></div>
        <div class="card"><div class="label">Pages Visited</div><div class="value" id="pages_visited">0</div></div>
        <div class="card success"><div class="label">Questions Saved</div><div class="value" id="questions_saved">0</div></div>
        <div class="card warning"><div class="label">Items Skipped</div><div class="value" id="items_skipped">0</div></div>
        <div class="card error"><div class="label">Save Errors</div><div class="value" id="save_errors">0</div></div>
        <div class="card"><div class="label">Dialogs Accepted</div><div class="value" id="dialogs_accepted">0</div></div>
        <div class="card"><div class="label">Login Attempts</div><div class="value" id="login_attempts">0</div></div>
    </div>
    <div class="footer">Auto-refreshes every 2s</div>
    <script>
        const keys = ['active_sessions','jobs_started','jobs_failed','jobs_cancelled','batches_started','batches_completed',
            'batches_failed','pages_visited','questions_saved','items_skipped','save_errors','dialogs_accepted','login_attempts'];
        async function refresh() {
            try {
                const r = await fetch('/api/stats');
                const d = await r.json();
                keys.forEach(k => {
                    const el = document.getElementById(k);
                    if (el && d[k] !== undefined) el.textContent = Number(d[k]).toLocaleString();
                });
            } catch(e) {}
        }
        setInterval(refresh, 2000);
        refresh();
    </script>
</body>
</html>`
